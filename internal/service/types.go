package service

import (
	"errors"
	"time"

	"xray-analyzer-go/internal/findings"
	"xray-analyzer-go/pkg/models"
)

var (
	// ErrNoAnalysis в сессии еще нет результата анализа
	ErrNoAnalysis = errors.New("no analysis in session")
	// ErrNoImage исходное изображение недоступно (не загружено или потеряно при перезапуске)
	ErrNoImage = errors.New("image not available")
	// ErrBusy такая же операция уже выполняется для сессии
	ErrBusy = errors.New("operation already in progress")
	// ErrStaleResult ответ пришел после сброса сессии и был отброшен
	ErrStaleResult = errors.New("analysis result discarded: session was reset")
	// ErrInferenceFailed сервис инференса недоступен или вернул ошибку
	ErrInferenceFailed = errors.New("inference failed")
)

// UploadRequest загрузка снимка на анализ
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Threshold   *float64 // nil - порог по умолчанию
	Type        models.AnalysisType
}

// FileInfo сведения о загруженном файле
type FileInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	SizeLabel   string    `json:"size_label"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// FindingView находка с цветом приоритета
type FindingView struct {
	findings.Finding
	Color string `json:"color"`
}

// ResultView представление результата анализа для клиента
type ResultView struct {
	SessionID       string              `json:"session_id"`
	Kind            models.AnalysisKind `json:"kind"`
	File            *FileInfo           `json:"file,omitempty"`
	FileStale       bool                `json:"file_stale"`
	ImageURL        *string             `json:"image_url,omitempty"`
	ModelUsed       string              `json:"model_used,omitempty"`
	Threshold       float64             `json:"threshold,omitempty"`
	InferenceID     string              `json:"inference_id,omitempty"`
	Summary         findings.Summary    `json:"summary"`
	Findings        []FindingView       `json:"findings"`
	Recommendations []string            `json:"recommendations"`
}
