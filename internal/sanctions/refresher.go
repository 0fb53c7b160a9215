package sanctions

import (
	"context"
	"log/slog"
	"time"

	"txguard/internal/compliance/models"
	"txguard/pkg/platform/retry"
)

// List is one versioned read of a sanctions list provider.
type List struct {
	Version uint64
	Entries []models.SanctionsEntry
}

// Provider supplies the current sanctions list. Versions must increase
// monotonically across list updates.
type Provider interface {
	CurrentEntries(ctx context.Context) (List, error)
}

const defaultLookupTimeout = 30 * time.Second

// Refresher polls a Provider and installs newer snapshots into a Holder.
type Refresher struct {
	provider Provider
	holder   *Holder
	interval time.Duration
	timeout  time.Duration
	policy   retry.Policy
	trigger  chan struct{}
	now      func() time.Time
	metrics  *Metrics
	logger   *slog.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

func WithRefreshPolicy(p retry.Policy) RefresherOption {
	return func(r *Refresher) { r.policy = p }
}

// WithLookupTimeout bounds each provider read. A read that exceeds it counts
// as a failed attempt.
func WithLookupTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRefresherMetrics(m *Metrics) RefresherOption {
	return func(r *Refresher) { r.metrics = m }
}

func WithRefresherLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithRefresherClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRefresher(provider Provider, holder *Holder, interval time.Duration, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		provider: provider,
		holder:   holder,
		interval: interval,
		timeout:  defaultLookupTimeout,
		policy:   retry.DefaultPolicy(),
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh loads the provider's list once, retrying transient failures. A
// persistent failure leaves the previous snapshot active.
func (r *Refresher) Refresh(ctx context.Context) error {
	var list List
	_, err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		var err error
		list, err = r.provider.CurrentEntries(ctx)
		return err
	})
	if err != nil {
		r.metrics.IncRefreshFailure()
		r.logger.ErrorContext(ctx, "sanctions list refresh failed", "error", err)
		return err
	}

	cur := r.holder.Current()
	if cur != nil && list.Version == cur.Version {
		// Same list re-read: extend its freshness without recompiling.
		r.holder.current.CompareAndSwap(cur, &Snapshot{
			Version:  cur.Version,
			LoadedAt: r.now(),
			entries:  cur.entries,
			byIdent:  cur.byIdent,
			byAddr:   cur.byAddr,
		})
		return nil
	}

	next := NewSnapshot(list.Version, list.Entries, r.now())
	if !r.holder.Swap(next) {
		r.logger.WarnContext(ctx, "ignoring sanctions list with non-increasing version",
			"offered_version", list.Version,
			"active_version", r.holder.Current().Version,
		)
		return nil
	}
	r.metrics.SetSnapshot(next)
	r.logger.InfoContext(ctx, "sanctions list updated", "version", next.Version, "entries", next.Len())
	return nil
}

// Trigger requests an immediate refresh; extra requests coalesce.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes on every interval tick or trigger until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.trigger:
		}
		_ = r.Refresh(ctx)
	}
}
