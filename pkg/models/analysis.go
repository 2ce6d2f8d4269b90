package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisKind тег варианта ответа сервиса инференса
type AnalysisKind string

const (
	// KindDiseaseScores карта вероятностей заболеваний (рентген)
	KindDiseaseScores AnalysisKind = "scores"
	// KindDetections список детекций с рамками (МРТ)
	KindDetections AnalysisKind = "detections"
)

// AnalysisType тип исследования, выбираемый при загрузке
type AnalysisType string

const (
	AnalysisTypeXRay AnalysisType = "xray"
	AnalysisTypeMRI  AnalysisType = "mri"
)

// Kind возвращает вариант ответа, который вернет эндпоинт для данного типа исследования
func (t AnalysisType) Kind() AnalysisKind {
	if t == AnalysisTypeMRI {
		return KindDetections
	}
	return KindDiseaseScores
}

// AnalyzeRequest запрос на анализ снимка
type AnalyzeRequest struct {
	FileData    []byte       `json:"-"`            // Содержимое файла (не сериализуем в JSON)
	FileName    string       `json:"file_name"`    // Имя файла
	ContentType string       `json:"content_type"` // MIME тип файла
	Threshold   float64      `json:"threshold"`    // Порог уверенности 0..1
	Type        AnalysisType `json:"type"`         // xray или mri
}

// ImagePath путь к изображению, сгенерированному сервисом инференса
type ImagePath struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// DiseaseScore одна запись карты detected_diseases
type DiseaseScore struct {
	Label string
	Score float64
}

// DiseaseScores упорядоченная карта label -> score.
// Порядок ключей сохраняется таким, каким он пришел в JSON.
type DiseaseScores []DiseaseScore

// UnmarshalJSON читает JSON объект, сохраняя порядок ключей
func (d *DiseaseScores) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("detected_diseases: expected object, got %v", tok)
	}

	scores := DiseaseScores{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("detected_diseases: unexpected key %v", keyTok)
		}
		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("detected_diseases[%q]: %w", label, err)
		}
		scores = append(scores, DiseaseScore{Label: label, Score: score})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = scores
	return nil
}

// MarshalJSON пишет JSON объект в исходном порядке ключей
func (d DiseaseScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DiseaseScoreResult ответ эндпоинта detect-disease
type DiseaseScoreResult struct {
	Status                string        `json:"status"`
	InputImage            string        `json:"input_image"`
	Threshold             float64       `json:"threshold"`
	TotalDiseasesDetected int           `json:"total_diseases_detected"`
	DetectedDiseases      DiseaseScores `json:"detected_diseases"`
	ImagePaths            []ImagePath   `json:"image_paths"`
	ModelUsed             string        `json:"model_used"`
}

// ImageSize размеры исходного изображения в пикселях
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Prediction одна детекция: рамка в пикселях, уверенность и класс
type Prediction struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Confidence  float64 `json:"confidence"`
	Class       string  `json:"class"`
	ClassID     int     `json:"class_id"`
	DetectionID string  `json:"detection_id"`
}

// DetectionResult ответ эндпоинта detect-mri
type DetectionResult struct {
	InferenceID string       `json:"inference_id"`
	Time        float64      `json:"time"`
	Image       ImageSize    `json:"image"`
	Predictions []Prediction `json:"predictions"`
}

// RawAnalysisResult ответ сервиса инференса с явным тегом варианта.
// Тег выставляется клиентом сразу после сетевого вызова.
type RawAnalysisResult struct {
	Kind       AnalysisKind        `json:"kind"`
	Scores     *DiseaseScoreResult `json:"scores,omitempty"`
	Detections *DetectionResult    `json:"detections,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

// NewScoresResult оборачивает ответ detect-disease
func NewScoresResult(res *DiseaseScoreResult) *RawAnalysisResult {
	return &RawAnalysisResult{Kind: KindDiseaseScores, Scores: res, ReceivedAt: time.Now()}
}

// NewDetectionsResult оборачивает ответ detect-mri
func NewDetectionsResult(res *DetectionResult) *RawAnalysisResult {
	return &RawAnalysisResult{Kind: KindDetections, Detections: res, ReceivedAt: time.Now()}
}

// ModelUsed имя модели, если сервис его сообщил
func (r *RawAnalysisResult) ModelUsed() string {
	if r == nil || r.Kind != KindDiseaseScores || r.Scores == nil {
		return ""
	}
	return r.Scores.ModelUsed
}

// Threshold порог, с которым выполнялся анализ (0, если неизвестен)
func (r *RawAnalysisResult) Threshold() float64 {
	if r == nil || r.Kind != KindDiseaseScores || r.Scores == nil {
		return 0
	}
	return r.Scores.Threshold
}

// InferenceID идентификатор инференса для ответов detect-mri
func (r *RawAnalysisResult) InferenceID() string {
	if r == nil || r.Kind != KindDetections || r.Detections == nil {
		return ""
	}
	return r.Detections.InferenceID
}

// HealthResponse ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // healthy/unhealthy
	ModelLoaded bool   `json:"model_loaded"` // Загружена ли модель
	Version     string `json:"version"`      // Версия сервиса
}
