package handler

import (
	"fmt"
	"net/http"

	"xray-analyzer-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler обрабатывает HTTP запросы для работы с сессиями анализа
type SessionHandler struct {
	resultService *service.ResultService
	logger        *logrus.Logger
}

// NewSessionHandler создает новый экземпляр SessionHandler
func NewSessionHandler(resultService *service.ResultService, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		resultService: resultService,
		logger:        logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func RegisterRoutes(router *gin.Engine, analyzer *AnalyzerHandler, sessions *SessionHandler) {
	router.GET("/health", analyzer.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.GET("/health", analyzer.HealthCheck)
		api.POST("/sessions", sessions.CreateSession)
		api.GET("/sessions/:id", sessions.GetResult)
		api.POST("/sessions/:id/analyze", analyzer.Analyze)
		api.GET("/sessions/:id/report", sessions.DownloadReport)
		api.GET("/sessions/:id/image", sessions.GetImage)
		api.DELETE("/sessions/:id/file", sessions.RemoveFile)
		api.DELETE("/sessions/:id", sessions.DeleteSession)
	}
}

// CreateSession создает новую сессию анализа
func (h *SessionHandler) CreateSession(c *gin.Context) {
	id := h.resultService.CreateSession()
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

// GetResult возвращает результат анализа сессии
func (h *SessionHandler) GetResult(c *gin.Context) {
	view, err := h.resultService.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DownloadReport отдает PDF отчет
func (h *SessionHandler) DownloadReport(c *gin.Context) {
	sessionID := c.Param("id")
	h.logger.Infof("Запрос PDF отчета для сессии %s", sessionID)

	doc, err := h.resultService.Report(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// GetImage возвращает загруженное изображение
func (h *SessionHandler) GetImage(c *gin.Context) {
	data, contentType, err := h.resultService.Image(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// RemoveFile убирает файл и результат, возвращая сессию к загрузке
func (h *SessionHandler) RemoveFile(c *gin.Context) {
	if err := h.resultService.Reset(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session reset"})
}

// DeleteSession сбрасывает и удаляет сессию
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.resultService.Discard(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}
