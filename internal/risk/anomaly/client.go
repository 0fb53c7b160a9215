// Package anomaly calls the external anomaly-detection model.
package anomaly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"txguard/internal/compliance/models"
	"txguard/internal/risk"
	"txguard/pkg/platform/circuit"
	"txguard/pkg/platform/retry"
)

const serviceName = "anomaly"

// ErrCircuitOpen is returned without calling the model while the breaker is open.
var ErrCircuitOpen = models.NewExternalServiceError(serviceName, models.ErrorOutage, errors.New("circuit open"))

type inferRequest struct {
	TransactionID string        `json:"transaction_id"`
	Features      risk.Features `json:"features"`
}

type inferResponse struct {
	Score *float64 `json:"score"`
}

// Client implements risk.AnomalyScorer over HTTP:
//
//	POST {base}/v1/infer {"transaction_id","features"} -> {"score": 0.0..1.0}
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	policy  retry.Policy
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

func New(baseURL string, timeout time.Duration, policy retry.Policy, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: timeout,
		policy:  policy,
		breaker: circuit.New(serviceName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Infer implements risk.AnomalyScorer.
func (c *Client) Infer(ctx context.Context, tx models.Transaction, features risk.Features) (float64, error) {
	if !c.breaker.Allow() {
		return 0, ErrCircuitOpen
	}
	body, err := json.Marshal(inferRequest{TransactionID: tx.ID.String(), Features: features})
	if err != nil {
		return 0, fmt.Errorf("encode anomaly request: %w", err)
	}

	var score float64
	_, err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		s, err := c.infer(ctx, body)
		if err != nil {
			if models.IsRetryable(err) {
				return err
			}
			return retry.Permanent(err)
		}
		score = s
		return nil
	})
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "anomaly model circuit opened", "error", err)
		}
		return 0, err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "anomaly model circuit closed")
	}
	return score, nil
}

func (c *Client) infer(ctx context.Context, body []byte) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/infer", bytes.NewReader(body))
	if err != nil {
		return 0, models.NewExternalServiceError(serviceName, models.ErrorRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, models.NewExternalServiceError(serviceName, models.ErrorTimeout, err)
		}
		return 0, models.NewExternalServiceError(serviceName, models.ErrorOutage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, models.ClassifyHTTPStatus(serviceName, resp.StatusCode)
	}
	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, models.NewExternalServiceError(serviceName, models.ErrorBadData, fmt.Errorf("decode response: %w", err))
	}
	if out.Score == nil {
		return 0, models.NewExternalServiceError(serviceName, models.ErrorBadData, errors.New("response has no score"))
	}
	return *out.Score, nil
}
