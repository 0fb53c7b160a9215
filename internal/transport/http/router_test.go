package httptransport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"txguard/internal/compliance/handler"
	"txguard/internal/compliance/handler/mocks"
	"txguard/internal/compliance/service"
	"txguard/internal/platform/metrics"
	"txguard/internal/ratelimit"
	"txguard/pkg/platform/middleware/auth"
	"txguard/pkg/platform/middleware/request"
	"txguard/pkg/testutil"
)

func newTestRouter(t *testing.T, validator auth.JWTValidator, checks ...HealthCheck) (http.Handler, *mocks.MockService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := mocks.NewMockService(gomock.NewController(t))
	return NewRouter(Deps{
		Compliance: handler.New(svc, logger),
		Metrics:    metrics.NewWithRegisterer(prometheus.NewRegistry()),
		Auth:       validator,
		Health:     checks,
		Logger:     logger,
	}), svc
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, _ := newTestRouter(t, nil, HealthCheck{Name: "ledger", Check: func(context.Context) error { return nil }})
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))
	})

	t.Run("failing dependency", func(t *testing.T) {
		router, _ := newTestRouter(t, nil, HealthCheck{Name: "ledger", Check: func(context.Context) error {
			return errors.New("integrity violation at seq 4")
		}})
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		body := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", body.Status)
		assert.Contains(t, body.Checks["ledger"], "seq 4")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestV1RequiresBearerTokenWhenConfigured(t *testing.T) {
	signer := auth.NewHS256("test-signing-key-with-enough-bytes", "txguard", "")
	router, svc := newTestRouter(t, signer)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := signer.Issue("ops-console", "audit:read", time.Minute)
	require.NoError(t, err)
	svc.EXPECT().VerifyLedger(gomock.Any(), gomock.Any(), gomock.Any()).Return(service.VerifyResult{Valid: true}, nil)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	req := testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil)
	req.Header.Set(request.HeaderRequestID, "caller-123")
	rr := testutil.DoRequest(router, req)
	assert.Equal(t, "caller-123", rr.Header().Get(request.HeaderRequestID))
}

func TestV1IsRateLimited(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := mocks.NewMockService(gomock.NewController(t))
	router := NewRouter(Deps{
		Compliance: handler.New(svc, logger),
		Metrics:    metrics.NewWithRegisterer(prometheus.NewRegistry()),
		RateLimit:  ratelimit.New(ratelimit.NewMemory(), 1, time.Minute).Handler,
		Logger:     logger,
	})
	svc.EXPECT().VerifyLedger(gomock.Any(), gomock.Any(), gomock.Any()).Return(service.VerifyResult{Valid: true}, nil).Times(1)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "health is outside /v1")
}
