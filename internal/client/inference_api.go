package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xray-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// InferenceError сервис инференса ответил не 2xx или сообщил о неуспехе
type InferenceError struct {
	StatusCode int
	Body       string
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference API error: status %d, body: %s", e.StatusCode, e.Body)
}

// InferenceClient клиент для сервиса инференса
type InferenceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewInferenceClient создает новый клиент для сервиса инференса
func NewInferenceClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *InferenceClient {
	return &InferenceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Analyze выбирает эндпоинт по типу исследования
func (c *InferenceClient) Analyze(ctx context.Context, request models.AnalyzeRequest) (*models.RawAnalysisResult, error) {
	if request.Type == models.AnalysisTypeMRI {
		return c.DetectMRI(ctx, request)
	}
	return c.DetectDisease(ctx, request)
}

// DetectDisease отправляет рентгеновский снимок на классификацию заболеваний
func (c *InferenceClient) DetectDisease(ctx context.Context, request models.AnalyzeRequest) (*models.RawAnalysisResult, error) {
	c.logger.Infof("Отправка снимка %s на detect-disease (порог %.2f)", request.FileName, request.Threshold)

	query := url.Values{}
	query.Set("threshold", strconv.FormatFloat(request.Threshold, 'f', -1, 64))
	endpoint := fmt.Sprintf("%s/detect-disease?%s", c.baseURL, query.Encode())

	respBody, err := c.postFile(ctx, endpoint, request)
	if err != nil {
		return nil, err
	}

	var result models.DiseaseScoreResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	if result.Status != "success" {
		return nil, &InferenceError{StatusCode: http.StatusOK, Body: string(respBody)}
	}

	c.logger.Infof("Получено %d оценок заболеваний для %s", len(result.DetectedDiseases), request.FileName)
	return models.NewScoresResult(&result), nil
}

// DetectMRI отправляет МРТ снимок на детекцию
func (c *InferenceClient) DetectMRI(ctx context.Context, request models.AnalyzeRequest) (*models.RawAnalysisResult, error) {
	c.logger.Infof("Отправка снимка %s на detect-mri", request.FileName)

	respBody, err := c.postFile(ctx, c.baseURL+"/detect-mri", request)
	if err != nil {
		return nil, err
	}

	var result models.DetectionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	c.logger.Infof("Получено %d детекций для %s", len(result.Predictions), request.FileName)
	return models.NewDetectionsResult(&result), nil
}

func (c *InferenceClient) postFile(ctx context.Context, endpoint string, request models.AnalyzeRequest) ([]byte, error) {
	// Создаем multipart form-data
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileWriter, err := writer.CreateFormFile("file", request.FileName)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для файла: %w", err)
	}
	if _, err := fileWriter.Write(request.FileData); err != nil {
		return nil, fmt.Errorf("ошибка записи данных файла: %w", err)
	}
	if err := writer.WriteField("threshold", strconv.FormatFloat(request.Threshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("ошибка записи threshold: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debugf("Отправка POST запроса на %s", endpoint)
	return c.do(req)
}

// CheckHealth проверяет состояние сервиса инференса
func (c *InferenceClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса инференса")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var healthResponse models.HealthResponse
	if err := json.Unmarshal(respBody, &healthResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return &healthResponse, nil
}

func (c *InferenceClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &InferenceError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
