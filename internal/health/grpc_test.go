package health

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"xray-analyzer-go/pkg/models"
)

type stubChecker struct {
	mu     sync.Mutex
	status string
	err    error
}

func (s *stubChecker) set(status string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.err = status, err
}

func (s *stubChecker) CheckHealth(context.Context) (*models.HealthResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &models.HealthResponse{Status: s.status}, nil
}

func startServer(t *testing.T, checker Checker) (*Server, healthpb.HealthClient) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := NewServer(checker, time.Hour, logger)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.grpc.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsInferenceAPI(t *testing.T) {
	checker := &stubChecker{}
	srv, c := startServer(t, checker)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, ServiceName))

	checker.set("healthy", nil)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, srv.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ""))

	checker.set("unhealthy", nil)
	srv.Probe(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, ServiceName))

	checker.set("", errors.New("connection refused"))
	srv.Probe(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, ""))
}
