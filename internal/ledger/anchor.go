package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Checkpoint attests that the chain up to Seq verified and ends in RecordHash.
type Checkpoint struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	RecordHash string    `json:"record_hash"`
	Algorithm  string    `json:"algorithm"`
	At         time.Time `json:"at"`
}

// AnchorSink publishes checkpoints to an external party.
type AnchorSink interface {
	Publish(ctx context.Context, cp Checkpoint) error
}

// ErrCompromised stops anchoring once an integrity failure has been seen.
var ErrCompromised = errors.New("ledger compromised; anchoring paused")

// Anchorer periodically verifies new records and publishes a checkpoint.
type Anchorer struct {
	ledger   *Ledger
	sink     AnchorSink
	interval time.Duration
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	anchored uint64 // records covered by the last published checkpoint
}

// AnchorOption configures an Anchorer.
type AnchorOption func(*Anchorer)

func WithAnchorMetrics(m *Metrics) AnchorOption {
	return func(a *Anchorer) { a.metrics = m }
}

func WithAnchorLogger(l *slog.Logger) AnchorOption {
	return func(a *Anchorer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithAnchorClock(now func() time.Time) AnchorOption {
	return func(a *Anchorer) { a.now = now }
}

func NewAnchorer(l *Ledger, sink AnchorSink, interval time.Duration, opts ...AnchorOption) *Anchorer {
	a := &Anchorer{
		ledger:   l,
		sink:     sink,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Anchor verifies the records appended since the last checkpoint and
// publishes a new one. It returns false when there was nothing new.
func (a *Anchorer) Anchor(ctx context.Context) (Checkpoint, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, bad := a.ledger.Compromised(); bad {
		a.metrics.IncCheckpoint("paused")
		return Checkpoint{}, false, ErrCompromised
	}
	head := a.ledger.Head()
	if head.Count == a.anchored {
		return Checkpoint{}, false, nil
	}
	if _, err := a.ledger.Verify(ctx, a.anchored, head.Seq); err != nil {
		a.metrics.IncCheckpoint("integrity_failure")
		return Checkpoint{}, false, err
	}

	cp := Checkpoint{
		ID:         uuid.NewString(),
		Seq:        head.Seq,
		RecordHash: head.RecordHash,
		Algorithm:  a.ledger.Algorithm(),
		At:         a.now().UTC(),
	}
	if err := a.sink.Publish(ctx, cp); err != nil {
		a.metrics.IncCheckpoint("publish_failure")
		return Checkpoint{}, false, fmt.Errorf("publish checkpoint: %w", err)
	}
	a.anchored = head.Count
	a.metrics.IncCheckpoint("published")
	return cp, true, nil
}

// Run anchors on every tick until ctx is done.
func (a *Anchorer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cp, published, err := a.Anchor(ctx)
			switch {
			case err != nil:
				a.logger.ErrorContext(ctx, "ledger anchoring failed", "error", err)
			case published:
				a.logger.InfoContext(ctx, "ledger checkpoint published",
					"checkpoint_id", cp.ID,
					"seq", cp.Seq,
					"record_hash", cp.RecordHash,
				)
			}
		}
	}
}

// LogSink writes checkpoints to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, cp Checkpoint) error {
	s.logger.InfoContext(ctx, "ledger checkpoint",
		"checkpoint_id", cp.ID,
		"seq", cp.Seq,
		"record_hash", cp.RecordHash,
		"algorithm", cp.Algorithm,
		"at", cp.At,
	)
	return nil
}
