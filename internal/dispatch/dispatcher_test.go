package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"txguard/internal/compliance/models"
	"txguard/internal/dispatch"
	"txguard/internal/dispatch/mocks"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

func notification(status models.VerdictStatus) dispatch.Notification {
	v := models.Verdict{
		TransactionID: id.TransactionID("tx-42"),
		Status:        status,
		Reasons:       []models.Reason{models.ReasonHighRisk},
		Actions:       []models.Action{models.ActionManualReview},
		DecidedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	return dispatch.NewNotification(v, models.AuditRecord{Seq: 7, RecordHash: "abc"}, v.DecidedAt)
}

func newSink(t *testing.T) *mocks.MockSink {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Name().Return("mock").AnyTimes()
	return sink
}

func TestDispatch_SkipsClear(t *testing.T) {
	sink := newSink(t)
	d := dispatch.New(sink, fastPolicy(4))

	res := d.Dispatch(context.Background(), notification(models.VerdictClear))
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Attempts)
	assert.NoError(t, res.Err)
}

func TestDispatch_RetriesUntilDelivered(t *testing.T) {
	sink := newSink(t)
	n := notification(models.VerdictFlag)
	gomock.InOrder(
		sink.EXPECT().Notify(gomock.Any(), n).Return(errors.New("connection reset")).Times(2),
		sink.EXPECT().Notify(gomock.Any(), n).Return(nil),
	)
	reg := prometheus.NewRegistry()
	m := dispatch.NewMetricsWithRegisterer(reg)
	d := dispatch.New(sink, fastPolicy(4), dispatch.WithMetrics(m))

	res := d.Dispatch(context.Background(), n)
	assert.True(t, res.Delivered)
	assert.Equal(t, 3, res.Attempts)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Attempts.WithLabelValues("mock", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Results.WithLabelValues("delivered")))
}

func TestDispatch_AttemptsAreBounded(t *testing.T) {
	sink := newSink(t)
	boom := errors.New("sink down")
	sink.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(boom).Times(4)
	d := dispatch.New(sink, fastPolicy(4))

	res := d.Dispatch(context.Background(), notification(models.VerdictBlock))
	assert.False(t, res.Delivered)
	assert.Equal(t, 4, res.Attempts)

	var derr *dispatch.DispatchError
	require.ErrorAs(t, res.Err, &derr)
	assert.Equal(t, 4, derr.Attempts)
	assert.Equal(t, "mock", derr.Sink)
	assert.ErrorIs(t, res.Err, boom)
}

func TestDispatch_PermanentErrorStopsRetries(t *testing.T) {
	sink := newSink(t)
	rejected := errors.New("bad request")
	sink.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(retry.Permanent(rejected)).Times(1)
	d := dispatch.New(sink, fastPolicy(4))

	res := d.Dispatch(context.Background(), notification(models.VerdictBlock))
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.Err, rejected)
}

func TestDispatch_AttemptTimeout(t *testing.T) {
	sink := newSink(t)
	sink.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ dispatch.Notification) error {
		<-ctx.Done()
		return ctx.Err()
	}).Times(2)
	d := dispatch.New(sink, fastPolicy(2), dispatch.WithAttemptTimeout(5*time.Millisecond))

	res := d.Dispatch(context.Background(), notification(models.VerdictFlag))
	assert.Equal(t, 2, res.Attempts)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestEnqueue_FullQueueFailsImmediately(t *testing.T) {
	sink := newSink(t)
	reg := prometheus.NewRegistry()
	m := dispatch.NewMetricsWithRegisterer(reg)
	d := dispatch.New(sink, fastPolicy(1), dispatch.WithQueue(1, 1), dispatch.WithMetrics(m))

	first := d.Enqueue(notification(models.VerdictFlag))
	assert.True(t, first.Queued)

	second := d.Enqueue(notification(models.VerdictBlock))
	assert.False(t, second.Queued)
	assert.ErrorIs(t, second.Err, dispatch.ErrQueueFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Results.WithLabelValues("queue_full")))

	assert.True(t, d.Enqueue(notification(models.VerdictClear)).Skipped)
}

func TestRun_WorkersDeliverQueuedNotifications(t *testing.T) {
	sink := newSink(t)
	sink.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	var (
		mu   sync.Mutex
		seen []string
		done = make(chan struct{})
	)
	d := dispatch.New(sink, fastPolicy(2),
		dispatch.WithQueue(3, 10),
		dispatch.WithResultHook(func(n dispatch.Notification, res dispatch.DispatchResult) {
			mu.Lock()
			defer mu.Unlock()
			if res.Delivered {
				seen = append(seen, n.ID)
			}
			if len(seen) == 5 {
				close(done)
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- d.Run(ctx) }()

	ids := map[string]bool{}
	for i := 0; i < 5; i++ {
		n := notification(models.VerdictBlock)
		ids[n.ID] = true
		require.True(t, d.Enqueue(n).Queued)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifications were not delivered")
	}
	cancel()
	require.NoError(t, <-stopped)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 5)
	for _, s := range seen {
		assert.True(t, ids[s])
	}
}

func TestNewNotification_UniqueIDs(t *testing.T) {
	a := notification(models.VerdictFlag)
	b := notification(models.VerdictFlag)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uint64(7), a.AuditSeq)
	assert.Equal(t, "abc", a.RecordHash)
}
