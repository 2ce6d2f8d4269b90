package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"xray-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса в протоколе grpc.health.v1
const ServiceName = "xray.Analyzer"

// Checker источник состояния сервиса инференса
type Checker interface {
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// Server gRPC сервер проверки здоровья
type Server struct {
	grpc     *grpc.Server
	health   *grpchealth.Server
	checker  Checker
	interval time.Duration
	logger   *logrus.Logger
}

// NewServer создает сервер; до первой проверки статус NOT_SERVING
func NewServer(checker Checker, interval time.Duration, logger *logrus.Logger) *Server {
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   grpchealth.NewServer(),
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve принимает соединения на lis и опрашивает сервис инференса до отмены ctx
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go s.Poll(ctx)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Infof("gRPC health сервер слушает %s", lis.Addr())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Poll периодически обновляет статус
func (s *Server) Poll(ctx context.Context) {
	s.Probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe выполняет одну проверку и возвращает выставленный статус
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	resp, err := s.checker.CheckHealth(ctx)
	switch {
	case err != nil:
		s.logger.Warnf("Сервис инференса недоступен: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	case resp.Status != "healthy":
		s.logger.Warnf("Сервис инференса сообщил статус %q", resp.Status)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.setStatus(status)
	return status
}

// Stop останавливает сервер
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
