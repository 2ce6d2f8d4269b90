package handler

import (
	"errors"
	"net/http"

	"xray-analyzer-go/internal/report"
	"xray-analyzer-go/internal/service"
	"xray-analyzer-go/internal/session"
	"xray-analyzer-go/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError переводит ошибку сервиса в HTTP статус и JSON тело
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, service.ErrNoAnalysis):
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis results for this session"})
	case errors.Is(err, service.ErrNoImage):
		c.JSON(http.StatusNotFound, gin.H{"error": "image not available, please upload the file again"})
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "operation already in progress"})
	case errors.Is(err, service.ErrStaleResult):
		c.JSON(http.StatusConflict, gin.H{"error": "session was reset while the analysis was running"})
	case errors.Is(err, service.ErrInferenceFailed):
		logger.Errorf("Ошибка сервиса инференса: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to analyze image. Please try again."})
	case errors.Is(err, report.ErrReportFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF report. Please try again."})
	default:
		logger.Errorf("Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
	}
}
