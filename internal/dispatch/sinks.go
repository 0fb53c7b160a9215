package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"txguard/internal/compliance/models"
	"txguard/pkg/platform/retry"
)

// LogSink writes alerts to the structured log. It never fails.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.logger.WarnContext(ctx, "compliance alert",
		"notification_id", n.ID,
		"transaction_id", n.Verdict.TransactionID,
		"verdict", n.Verdict.Status,
		"reasons", n.Verdict.Reasons,
		"required_actions", n.Verdict.Actions,
		"audit_seq", n.AuditSeq,
		"record_hash", n.RecordHash,
	)
	return nil
}

// IdempotencyHeader carries Notification.ID on webhook deliveries.
const IdempotencyHeader = "Idempotency-Key"

// WebhookSink POSTs the notification as JSON. 2xx is success; 408, 429 and
// 5xx are retried; any other status is permanent.
type WebhookSink struct {
	url  string
	http *http.Client
}

func NewWebhookSink(url string, httpClient *http.Client) *WebhookSink {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &WebhookSink{url: url, http: httpClient}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal notification: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, n.ID)

	resp, err := s.http.Do(req)
	if err != nil {
		category := models.ErrorOutage
		if errors.Is(err, context.DeadlineExceeded) {
			category = models.ErrorTimeout
		}
		return models.NewExternalServiceError(s.Name(), category, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	ese := models.ClassifyHTTPStatus(s.Name(), resp.StatusCode)
	if !ese.Retryable {
		return retry.Permanent(ese)
	}
	return ese
}
