// Package dispatch forwards FLAG and BLOCK verdicts to alerting sinks. Delivery
// failures are retried, then reported; they never change a verdict or its
// audit record.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"txguard/pkg/platform/retry"
)

// ErrQueueFull is reported when the async queue cannot take a notification.
var ErrQueueFull = errors.New("dispatch queue full")

// DispatchError describes a notification that could not be delivered.
type DispatchError struct {
	Sink     string
	Attempts int
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s failed after %d attempt(s): %v", e.Sink, e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// DispatchResult is the outcome of one notification.
type DispatchResult struct {
	Skipped   bool // verdict needs no action
	Queued    bool // accepted by Enqueue; delivery happens asynchronously
	Delivered bool
	Attempts  int
	Err       error // *DispatchError when delivery failed
}

// Dispatcher delivers notifications with bounded exponential backoff, either
// inline (Dispatch) or through a bounded queue drained by workers (Enqueue/Run).
type Dispatcher struct {
	sink           Sink
	policy         retry.Policy
	attemptTimeout time.Duration
	workers        int
	queue          chan Notification
	metrics        *Metrics
	logger         *slog.Logger
	onResult       func(Notification, DispatchResult)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithAttemptTimeout bounds each sink call.
func WithAttemptTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.attemptTimeout = t }
}

// WithQueue sizes the async queue and its worker pool.
func WithQueue(workers, size int) Option {
	return func(d *Dispatcher) {
		if workers > 0 {
			d.workers = workers
		}
		if size > 0 {
			d.queue = make(chan Notification, size)
		}
	}
}

// WithResultHook is called after every asynchronous delivery.
func WithResultHook(fn func(Notification, DispatchResult)) Option {
	return func(d *Dispatcher) { d.onResult = fn }
}

func New(sink Sink, policy retry.Policy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:           sink,
		policy:         policy,
		attemptTimeout: 3 * time.Second,
		workers:        1,
		queue:          make(chan Notification, 256),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers n synchronously. CLEAR verdicts are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) DispatchResult {
	if !n.Verdict.RequiresAction() {
		d.metrics.IncResult("skipped")
		return DispatchResult{Skipped: true}
	}

	attempts, err := retry.Do(ctx, d.policy, func(ctx context.Context) error {
		actx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
		defer cancel()
		err := d.sink.Notify(actx, n)
		if err != nil {
			d.metrics.IncAttempt(d.sink.Name(), "error")
			d.logger.DebugContext(ctx, "dispatch attempt failed",
				"notification_id", n.ID,
				"sink", d.sink.Name(),
				"error", err,
			)
			return err
		}
		d.metrics.IncAttempt(d.sink.Name(), "ok")
		return nil
	})
	if err != nil {
		d.metrics.IncResult("failed")
		derr := &DispatchError{Sink: d.sink.Name(), Attempts: attempts, Err: err}
		d.logger.ErrorContext(ctx, "compliance alert not delivered",
			"notification_id", n.ID,
			"transaction_id", n.Verdict.TransactionID,
			"verdict", n.Verdict.Status,
			"audit_seq", n.AuditSeq,
			"error", derr,
		)
		return DispatchResult{Attempts: attempts, Err: derr}
	}
	d.metrics.IncResult("delivered")
	return DispatchResult{Delivered: true, Attempts: attempts}
}

// Enqueue hands n to the worker pool without waiting. A full queue fails
// immediately.
func (d *Dispatcher) Enqueue(n Notification) DispatchResult {
	if !n.Verdict.RequiresAction() {
		d.metrics.IncResult("skipped")
		return DispatchResult{Skipped: true}
	}
	select {
	case d.queue <- n:
		d.metrics.SetQueueDepth(len(d.queue))
		return DispatchResult{Queued: true}
	default:
		d.metrics.IncResult("queue_full")
		d.logger.Error("compliance alert dropped, dispatch queue full",
			"notification_id", n.ID,
			"transaction_id", n.Verdict.TransactionID,
			"audit_seq", n.AuditSeq,
		)
		return DispatchResult{Err: &DispatchError{Sink: d.sink.Name(), Err: ErrQueueFull}}
	}
}

// Run drains the queue with the configured workers until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()
	if left := len(d.queue); left > 0 {
		d.logger.Warn("dispatch stopped with undelivered notifications", "pending", left)
	}
	return nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.metrics.SetQueueDepth(len(d.queue))
			res := d.Dispatch(ctx, n)
			if d.onResult != nil {
				d.onResult(n, res)
			}
		}
	}
}
