package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"xray-analyzer-go/internal/client"
	"xray-analyzer-go/internal/config"
	"xray-analyzer-go/internal/database"
	"xray-analyzer-go/internal/handler"
	"xray-analyzer-go/internal/health"
	"xray-analyzer-go/internal/report"
	"xray-analyzer-go/internal/repository"
	"xray-analyzer-go/internal/service"
	"xray-analyzer-go/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const purgeInterval = time.Hour

func main() {
	cfg := config.LoadConfig()

	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Запуск Xray Analyzer API Server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persister := setupPersistence(cfg, logger)

	// Инициализируем сервисы
	sessions := session.NewManager(persister, logger)
	go purgeExpired(ctx, sessions, cfg.Session.TTL, logger)
	inferenceClient := client.NewInferenceClient(cfg.InferenceAPI.BaseURL, cfg.InferenceTimeout(), logger)
	analyzerService := service.NewAnalyzerService(inferenceClient, sessions, cfg.InferenceAPI.DefaultThreshold, logger)
	resultService := service.NewResultService(sessions, report.NewBuilder(cfg.Report.ProductName, logger, report.WithGeometry(report.PageGeometry(cfg.Report.PageSize))), logger)

	// gRPC health
	if cfg.GRPC.Port > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port))
		if err != nil {
			logger.Fatalf("Ошибка открытия порта gRPC: %v", err)
		}
		healthServer := health.NewServer(analyzerService, cfg.GRPC.PollInterval, logger)
		go func() {
			if err := healthServer.Serve(ctx, lis); err != nil {
				logger.Errorf("gRPC сервер остановлен: %v", err)
			}
		}()
	}

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.MaxMultipartMemory = 32 << 20

	handler.RegisterRoutes(router,
		handler.NewAnalyzerHandler(analyzerService, resultService, logger),
		handler.NewSessionHandler(resultService, logger),
	)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Xray Analyzer API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: serverAddr, Handler: router}

	go func() {
		<-ctx.Done()
		logger.Info("Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Ошибка остановки сервера: %v", err)
		}
	}()

	logger.Infof("Сервер запущен на %s", serverAddr)
	logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}

	if err := database.Close(); err != nil {
		logger.Errorf("Ошибка закрытия базы данных: %v", err)
	}
}

// setupPersistence выбирает хранилище снимков сессий
func setupPersistence(cfg *config.Config, logger *logrus.Logger) session.Persister {
	if cfg.Session.Backend == "memory" {
		logger.Warn("Сессии хранятся только в памяти процесса")
		return session.NewMemoryPersister()
	}

	logger.Info("Подключение к базе данных...")
	if err := database.Connect(cfg.Database); err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	logger.Info("Выполнение миграций базы данных...")
	if err := database.Migrate(); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	if err := database.HealthCheck(); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}
	logger.Info("База данных успешно подключена и готова к работе")

	return repository.NewSessionRepository(database.DB)
}

// purgeExpired выгружает неактивные сессии и удаляет снимки старше ttl
func purgeExpired(ctx context.Context, sessions *session.Manager, ttl time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.Purge(ctx, ttl); err != nil {
				logger.Errorf("Ошибка очистки устаревших сессий: %v", err)
			}
		}
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
