package anomaly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/internal/compliance/models"
	"txguard/internal/risk"
	"txguard/pkg/platform/circuit"
	"txguard/pkg/platform/retry"
)

var fastRetry = retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestClient_Infer(t *testing.T) {
	var got inferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/infer", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"score":0.42}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, fastRetry, WithHTTPClient(srv.Client()))
	score, err := c.Infer(context.Background(), models.Transaction{ID: "tx-1"}, risk.Features{Currency: "USDC", RuleScore: 25})
	require.NoError(t, err)
	assert.Equal(t, 0.42, score)
	assert.Equal(t, "tx-1", got.TransactionID)
	assert.Equal(t, "USDC", got.Features.Currency)
}

func TestClient_MissingScoreIsBadData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, fastRetry, WithHTTPClient(srv.Client()))
	_, err := c.Infer(context.Background(), models.Transaction{ID: "tx-1"}, risk.Features{})
	var ese *models.ExternalServiceError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, models.ErrorBadData, ese.Category)
}

func TestClient_BreakerOpensAndShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := circuit.New(serviceName, circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c := New(srv.URL, time.Second, fastRetry, WithHTTPClient(srv.Client()), WithBreaker(breaker))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Infer(ctx, models.Transaction{ID: "tx-1"}, risk.Features{})
		require.Error(t, err)
	}
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, int32(4), calls.Load(), "two calls with two attempts each")

	_, err := c.Infer(ctx, models.Transaction{ID: "tx-2"}, risk.Features{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(4), calls.Load(), "open circuit does not call the model")
}
