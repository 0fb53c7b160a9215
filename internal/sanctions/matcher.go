// Package sanctions screens transaction parties against a versioned
// sanctions list using exact identifier matching and fuzzy name similarity.
package sanctions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"txguard/internal/compliance/models"
)

// DefaultMaxStaleness is the oldest snapshot Screen will trust.
const DefaultMaxStaleness = 24 * time.Hour

// Matcher screens parties against the holder's current snapshot.
type Matcher struct {
	holder       *Holder
	threshold    float64
	maxStaleness time.Duration
	now          func() time.Time
	metrics      *Metrics
	logger       *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

func WithMaxStaleness(d time.Duration) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.maxStaleness = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		if now != nil {
			m.now = now
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Matcher) {
		m.metrics = metrics
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMatcher builds a matcher declaring MATCH at similarity >= threshold.
func NewMatcher(holder *Holder, threshold float64, opts ...Option) *Matcher {
	m := &Matcher{
		holder:       holder,
		threshold:    threshold,
		maxStaleness: DefaultMaxStaleness,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

var (
	errNoSnapshot    = errors.New("sanctions list not loaded")
	errStaleSnapshot = errors.New("sanctions list is stale")
)

// Screen compares party against every entry's name, aliases and identifiers.
// It never reports NO_MATCH without a fresh snapshot: a missing or stale list
// yields ERROR, and cancellation yields TIMEOUT.
func (m *Matcher) Screen(ctx context.Context, party models.Party) models.ScreeningResult {
	snap := m.holder.Current()
	if snap == nil {
		return m.unavailable(ctx, 0, errNoSnapshot)
	}
	if age := m.now().Sub(snap.LoadedAt); age > m.maxStaleness {
		return m.unavailable(ctx, snap.Version, fmt.Errorf("%w: age %s", errStaleSnapshot, age.Truncate(time.Second)))
	}

	if idx, ok := identifierHit(snap, party); ok {
		e := snap.entries[idx].entry
		return models.ScreeningResult{
			Outcome:      models.OutcomeMatch,
			Confidence:   1,
			MatchedEntry: e.Name,
			Program:      e.Program,
			ListVersion:  snap.Version,
			Detail:       "identifier match",
		}
	}

	query := Normalize(party.Name)
	best, bestIdx := 0.0, -1
	if query != "" {
		queryTokens := sortedTokens(query)
		for i, ce := range snap.entries {
			if i%256 == 0 && ctx.Err() != nil {
				return models.ScreeningResult{Outcome: models.OutcomeTimeout, ListVersion: snap.Version, Detail: ctx.Err().Error()}
			}
			for _, n := range ce.names {
				if s := nameScore(query, queryTokens, n); s > best {
					best, bestIdx = s, i
				}
			}
		}
	}

	if bestIdx >= 0 && best >= m.threshold {
		e := snap.entries[bestIdx].entry
		return models.ScreeningResult{
			Outcome:      models.OutcomeMatch,
			Confidence:   best,
			MatchedEntry: e.Name,
			Program:      e.Program,
			ListVersion:  snap.Version,
		}
	}
	return models.ScreeningResult{
		Outcome:     models.OutcomeNoMatch,
		Confidence:  best,
		ListVersion: snap.Version,
	}
}

func identifierHit(snap *Snapshot, party models.Party) (int, bool) {
	for _, ident := range party.Identifiers {
		if idx, ok := snap.byIdent[identKey(ident.Type, ident.Value)]; ok {
			return idx, true
		}
		if idx, ok := snap.byAddr[foldValue(ident.Value)]; ok {
			return idx, true
		}
	}
	// Wallet parties are often identified only by their address.
	if idx, ok := snap.byAddr[foldValue(party.ID.String())]; ok {
		return idx, true
	}
	return 0, false
}

func (m *Matcher) unavailable(ctx context.Context, version uint64, err error) models.ScreeningResult {
	m.logger.WarnContext(ctx, "sanctions screening unavailable", "error", err, "list_version", version)
	m.metrics.IncUnavailable()
	return models.ScreeningResult{
		Outcome:     models.OutcomeError,
		ListVersion: version,
		Detail:      err.Error(),
	}
}
