package handler

import (
	"io"
	"net/http"
	"strconv"

	"xray-analyzer-go/internal/service"
	"xray-analyzer-go/internal/validation"
	"xray-analyzer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalyzerHandler обработчик загрузки и анализа снимков
type AnalyzerHandler struct {
	analyzerService *service.AnalyzerService
	resultService   *service.ResultService
	logger          *logrus.Logger
}

// NewAnalyzerHandler создает новый обработчик
func NewAnalyzerHandler(analyzerService *service.AnalyzerService, resultService *service.ResultService, logger *logrus.Logger) *AnalyzerHandler {
	return &AnalyzerHandler{
		analyzerService: analyzerService,
		resultService:   resultService,
		logger:          logger,
	}
}

// Analyze обрабатывает загрузку снимка и возвращает результат анализа
// @Summary Анализ снимка
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Идентификатор сессии"
// @Param file formData file true "JPEG, PNG или DICOM снимок"
// @Param threshold formData number false "Порог уверенности" default(0.6) minimum(0) maximum(1)
// @Param type formData string false "xray или mri" default(xray)
// @Success 200 {object} service.ResultView
// @Failure 400 {object} gin.H
// @Failure 409 {object} gin.H
// @Failure 502 {object} gin.H
// @Router /sessions/{id}/analyze [post]
func (h *AnalyzerHandler) Analyze(c *gin.Context) {
	sessionID := c.Param("id")
	h.logger.Infof("Получен запрос на анализ для сессии %s", sessionID)

	// Парсим multipart form
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.MsgFileRequired, "field": "file"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.logger.Infof("Файл не передан: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.MsgFileRequired, "field": "file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, validation.MaxFileSize+1))
	if err != nil {
		h.logger.Errorf("Ошибка чтения файла: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка чтения файла"})
		return
	}
	if header.Size > validation.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.MsgFileSize, "field": "file"})
		return
	}

	upload := service.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Type:        models.AnalysisType(getFormValue(c, []string{"type", "analysis_type"})),
	}

	// Порог опционален
	if raw := getFormValue(c, []string{"threshold", "confidence_threshold"}); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.MsgThreshold, "field": "threshold"})
			return
		}
		upload.Threshold = &threshold
	}

	if err := h.analyzerService.Analyze(c.Request.Context(), sessionID, upload); err != nil {
		respondError(c, h.logger, err)
		return
	}

	view, err := h.resultService.View(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Infof("Анализ успешно завершен: %d находок", view.Summary.TotalFindings)
	c.JSON(http.StatusOK, view)
}

// HealthCheck проверяет состояние сервиса
// @Summary Проверка состояния сервиса
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (h *AnalyzerHandler) HealthCheck(c *gin.Context) {
	h.logger.Debug("Получен запрос проверки здоровья")

	health, err := h.analyzerService.CheckHealth(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, health)
}

// getFormValue получает значение из формы, пробуя разные варианты ключей
func getFormValue(c *gin.Context, keys []string) string {
	for _, key := range keys {
		if value := c.PostForm(key); value != "" {
			return value
		}
	}
	return ""
}
