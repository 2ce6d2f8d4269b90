package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig параметры подключения к PostgreSQL
type DatabaseConfig struct {
	Host         string
	Port         string
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
	}
	GRPC struct {
		Port         int
		PollInterval time.Duration
	}
	InferenceAPI struct {
		BaseURL          string
		Timeout          int // в секундах
		DefaultThreshold float64
	}
	Session struct {
		Backend string // postgres или memory
		TTL     time.Duration
	}
	Report struct {
		ProductName string
		PageSize    string // A4 или Letter
	}
	Logging struct {
		Level string
	}
	Database DatabaseConfig
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() *Config {
	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")

	// gRPC health; 0 отключает
	cfg.GRPC.Port = getEnvInt("GRPC_PORT", 9090)
	cfg.GRPC.PollInterval = time.Duration(getEnvInt("GRPC_HEALTH_POLL_SECONDS", 30)) * time.Second

	// Конфигурация сервиса инференса
	cfg.InferenceAPI.BaseURL = getEnv("INFERENCE_API_BASE_URL", "http://localhost:9000")
	cfg.InferenceAPI.Timeout = getEnvInt("INFERENCE_API_TIMEOUT_SECONDS", 120)
	cfg.InferenceAPI.DefaultThreshold = getEnvFloat("DEFAULT_THRESHOLD", 0.6)

	// Сессии
	cfg.Session.Backend = getEnv("SESSION_BACKEND", "postgres")
	cfg.Session.TTL = time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour

	cfg.Report.ProductName = getEnv("REPORT_PRODUCT_NAME", "Xray AI Analysis")
	cfg.Report.PageSize = getEnv("REPORT_PAGE_SIZE", "A4")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	// База данных
	cfg.Database = DatabaseConfig{
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnv("DB_PORT", "5432"),
		Database:     getEnv("DB_NAME", "xray_analyzer"),
		Username:     getEnv("DB_USER", "postgres"),
		Password:     getEnv("DB_PASSWORD", "postgres123"),
		SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 100),
	}

	return cfg
}

// InferenceTimeout таймаут HTTP клиента сервиса инференса
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceAPI.Timeout) * time.Second
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float64 значение переменной окружения или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
