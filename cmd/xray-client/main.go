package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type resultView struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Summary   struct {
		TotalFindings     int `json:"total_findings"`
		HighPriorityCount int `json:"high_priority_count"`
		AverageConfidence int `json:"average_confidence"`
	} `json:"summary"`
	Findings []struct {
		Name       string `json:"name"`
		Confidence int    `json:"confidence"`
		Priority   string `json:"priority"`
	} `json:"findings"`
}

func main() {
	baseURL := getEnv("XRAY_API_URL", "http://localhost:8080")

	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		os.Exit(1)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	if len(os.Args) < 2 {
		fmt.Println("Использование: xray-client <путь_к_снимку> [xray|mri] [порог]")
		return
	}

	analysisType := "xray"
	if len(os.Args) > 2 {
		analysisType = os.Args[2]
	}
	threshold := ""
	if len(os.Args) > 3 {
		threshold = os.Args[3]
	}

	if err := run(baseURL, os.Args[1], analysisType, threshold); err != nil {
		fmt.Printf("Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func run(baseURL, imagePath, analysisType, threshold string) error {
	client := &http.Client{Timeout: 5 * time.Minute}

	// Создаем сессию
	resp, err := client.Post(baseURL+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	err = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	fmt.Printf("Сессия: %s\n", created.SessionID)

	view, err := analyze(client, baseURL, created.SessionID, imagePath, analysisType, threshold)
	if err != nil {
		return err
	}

	fmt.Printf("Находок: %d, высокий приоритет: %d, средняя уверенность: %d%%\n",
		view.Summary.TotalFindings, view.Summary.HighPriorityCount, view.Summary.AverageConfidence)
	for _, f := range view.Findings {
		fmt.Printf("  %-30s %3d%%  %s\n", f.Name, f.Confidence, f.Priority)
	}

	return downloadReport(client, baseURL, created.SessionID, filepath.Base(imagePath))
}

func analyze(client *http.Client, baseURL, sessionID, imagePath, analysisType, threshold string) (*resultView, error) {
	// Читаем файл снимка
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	// Создаем multipart form
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field: %w", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		return nil, fmt.Errorf("ошибка записи файла: %w", err)
	}
	_ = writer.WriteField("type", analysisType)
	if threshold != "" {
		_ = writer.WriteField("threshold", threshold)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/sessions/%s/analyze", baseURL, sessionID)
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	fmt.Println("Отправляем запрос на анализ...")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("анализ завершился ошибкой (статус %d): %s", resp.StatusCode, string(respBody))
	}

	var view resultView
	if err := json.Unmarshal(respBody, &view); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return &view, nil
}

func downloadReport(client *http.Client, baseURL, sessionID, fileName string) error {
	resp, err := client.Get(fmt.Sprintf("%s/api/v1/sessions/%s/report", baseURL, sessionID))
	if err != nil {
		return fmt.Errorf("ошибка запроса отчета: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("отчет не получен (статус %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	out := fileName + "-analysis-report.pdf"
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("ошибка создания файла отчета: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка записи отчета: %w", err)
	}
	fmt.Printf("Отчет сохранен: %s (%d байт)\n", out, n)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
