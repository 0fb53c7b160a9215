package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, Subject(ctx))

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx = WithTime(WithSubject(WithRequestID(ctx, "req-1"), "ops-console"), fixed)

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "ops-console", Subject(ctx))
	assert.Equal(t, fixed, Now(ctx))
}

func TestNow_FallsBackToWallClock(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}
