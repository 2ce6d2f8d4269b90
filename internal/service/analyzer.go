package service

import (
	"context"
	"fmt"

	"xray-analyzer-go/internal/session"
	"xray-analyzer-go/internal/validation"
	"xray-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Inference сервис инференса
type Inference interface {
	Analyze(ctx context.Context, request models.AnalyzeRequest) (*models.RawAnalysisResult, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// AnalyzerService сервис анализа снимков
type AnalyzerService struct {
	inference        Inference
	sessions         *session.Manager
	validator        *validation.Validator
	defaultThreshold float64
	guard            *inflight
	logger           *logrus.Logger
}

// NewAnalyzerService создает новый сервис анализатора
func NewAnalyzerService(inference Inference, sessions *session.Manager, defaultThreshold float64, logger *logrus.Logger) *AnalyzerService {
	return &AnalyzerService{
		inference:        inference,
		sessions:         sessions,
		validator:        validation.New(),
		defaultThreshold: defaultThreshold,
		guard:            newInflight(),
		logger:           logger,
	}
}

// ImageURL адрес исходного изображения сессии
func ImageURL(sessionID string) string {
	return fmt.Sprintf("/api/v1/sessions/%s/image", sessionID)
}

// Analyze проверяет загрузку, отправляет снимок в сервис инференса и
// атомарно записывает файл, изображение и результат в сессию.
// При ошибке инференса предыдущее состояние сессии не меняется.
func (s *AnalyzerService) Analyze(ctx context.Context, sessionID string, upload UploadRequest) error {
	store, err := s.sessions.Ensure(ctx, sessionID)
	if err != nil {
		return err
	}

	threshold := s.defaultThreshold
	if upload.Threshold != nil {
		threshold = *upload.Threshold
	}
	if upload.Type == "" {
		upload.Type = models.AnalysisTypeXRay
	}

	contentType := upload.ContentType
	if len(upload.Data) > 0 {
		contentType = validation.DetectContentType(upload.ContentType, upload.Data)
	}

	if err := s.validator.Validate(validation.Upload{
		FileName:    upload.FileName,
		ContentType: contentType,
		Size:        int64(len(upload.Data)),
		Threshold:   threshold,
		Type:        string(upload.Type),
		Data:        upload.Data,
	}); err != nil {
		s.logger.Infof("Загрузка %q отклонена: %v", upload.FileName, err)
		return err
	}

	release, err := s.guard.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	generation := store.Generation()
	s.logger.Infof("Начинаем анализ %s (%s, %d байт) для сессии %s", upload.FileName, upload.Type, len(upload.Data), sessionID)

	raw, err := s.inference.Analyze(ctx, models.AnalyzeRequest{
		FileData:    upload.Data,
		FileName:    upload.FileName,
		ContentType: contentType,
		Threshold:   threshold,
		Type:        upload.Type,
	})
	if err != nil {
		s.logger.Errorf("Ошибка при обращении к сервису инференса: %v", err)
		return fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}

	handle := ImageURL(sessionID)
	committed := store.Commit(generation, session.Update{
		Analysis:     raw,
		File:         session.NewFileRef(upload.FileName, contentType, upload.Data),
		DisplayImage: &handle,
	})
	if !committed {
		s.logger.Warnf("Сессия %s была сброшена во время анализа, результат отброшен", sessionID)
		return ErrStaleResult
	}

	s.logger.Infof("Анализ %s завершен (%s)", upload.FileName, raw.Kind)
	return nil
}

// CheckHealth проверяет состояние сервиса инференса
func (s *AnalyzerService) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	s.logger.Debug("Проверяем состояние сервиса инференса")

	health, err := s.inference.CheckHealth(ctx)
	if err != nil {
		s.logger.Errorf("Сервис инференса недоступен: %v", err)
		return &models.HealthResponse{Status: "unhealthy"}, err
	}
	return health, nil
}
