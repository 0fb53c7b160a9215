package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/internal/ledger/store"
	"txguard/pkg/platform/sentinel"
)

type recordingSink struct {
	mu          sync.Mutex
	checkpoints []Checkpoint
	err         error
}

func (s *recordingSink) Publish(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.checkpoints = append(s.checkpoints, cp)
	return nil
}

func (s *recordingSink) published() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Checkpoint(nil), s.checkpoints...)
}

func newAnchorer(l *Ledger, sink AnchorSink) *Anchorer {
	return NewAnchorer(l, sink, time.Hour,
		WithAnchorClock(func() time.Time { return fixedNow }),
		WithAnchorMetrics(NewMetricsWithRegisterer(prometheus.NewRegistry())),
	)
}

func TestAnchor_PublishesOnlyNewRecords(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, store.NewMemory())
	sink := &recordingSink{}
	a := newAnchorer(l, sink)

	_, published, err := a.Anchor(ctx)
	require.NoError(t, err)
	assert.False(t, published, "nothing to anchor on an empty ledger")

	recs := appendN(t, l, 3)
	cp, published, err := a.Anchor(ctx)
	require.NoError(t, err)
	require.True(t, published)
	assert.Equal(t, uint64(2), cp.Seq)
	assert.Equal(t, recs[2].RecordHash, cp.RecordHash)
	assert.Equal(t, AlgorithmSHA256, cp.Algorithm)
	assert.Equal(t, fixedNow, cp.At)
	assert.NotEmpty(t, cp.ID)

	_, published, err = a.Anchor(ctx)
	require.NoError(t, err)
	assert.False(t, published)

	appendN(t, l, 1)
	_, published, err = a.Anchor(ctx)
	require.NoError(t, err)
	assert.True(t, published)
	assert.Len(t, sink.published(), 2)
}

func TestAnchor_PausesWhenCompromised(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	appendN(t, openLedger(t, mem), 3)

	l := openLedger(t, tamperStore{Store: mem, seq: 1})
	sink := &recordingSink{}
	a := newAnchorer(l, sink)

	_, _, err := a.Anchor(ctx)
	assert.ErrorIs(t, err, sentinel.ErrIntegrity)

	_, _, err = a.Anchor(ctx)
	assert.ErrorIs(t, err, ErrCompromised)
	assert.Empty(t, sink.published())

	_, err = l.Append(ctx, entry("tx-after"))
	assert.NoError(t, err, "appends continue past a detected violation")
}

func TestAnchor_RetriesAfterPublishFailure(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, store.NewMemory())
	appendN(t, l, 2)
	sink := &recordingSink{err: errors.New("broker down")}
	a := newAnchorer(l, sink)

	_, _, err := a.Anchor(ctx)
	require.Error(t, err)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	cp, published, err := a.Anchor(ctx)
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, uint64(1), cp.Seq)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, sink.Publish(context.Background(), Checkpoint{ID: "cp-1", Seq: 9, RecordHash: "abc"}))
	assert.Contains(t, buf.String(), `"seq":9`)
	assert.Contains(t, buf.String(), `"record_hash":"abc"`)
}
