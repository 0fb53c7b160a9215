package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "txguard/pkg/domain"
)

const keyPrefix = "txguard:velocity:"

// Redis keeps one sorted set per party scored by event time in nanoseconds.
type Redis struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewRedis(client redis.UniversalClient, retention time.Duration) *Redis {
	return &Redis{client: client, retention: retention}
}

func key(partyID id.PartyID) string {
	return keyPrefix + partyID.String()
}

// Record adds the transaction, trims events beyond retention and refreshes the key TTL.
func (r *Redis) Record(ctx context.Context, partyID id.PartyID, txID id.TransactionID, at time.Time) error {
	k := key(partyID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, k, redis.Z{Score: float64(at.UnixNano()), Member: txID.String()})
		if r.retention > 0 {
			cutoff := at.Add(-r.retention).UnixNano()
			pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(cutoff, 10))
			pipe.Expire(ctx, k, r.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record velocity event: %w", err)
	}
	return nil
}

// Count returns events with from <= at < to.
func (r *Redis) Count(ctx context.Context, partyID id.PartyID, from, to time.Time) (int64, error) {
	n, err := r.client.ZCount(ctx, key(partyID),
		strconv.FormatInt(from.UnixNano(), 10),
		"("+strconv.FormatInt(to.UnixNano(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("count velocity events: %w", err)
	}
	return n, nil
}
