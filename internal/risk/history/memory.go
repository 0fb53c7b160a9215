// Package history stores per-party transaction timestamps for velocity scoring.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	id "txguard/pkg/domain"
)

type event struct {
	at   time.Time
	txID id.TransactionID
}

// Memory keeps history in process. Events older than retention are pruned on write.
type Memory struct {
	mu        sync.RWMutex
	retention time.Duration
	events    map[id.PartyID][]event
}

func NewMemory(retention time.Duration) *Memory {
	return &Memory{retention: retention, events: make(map[id.PartyID][]event)}
}

// Record adds a transaction; recording the same transaction twice is a no-op.
func (m *Memory) Record(_ context.Context, partyID id.PartyID, txID id.TransactionID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	evs := m.events[partyID]
	for _, e := range evs {
		if e.txID == txID {
			return nil
		}
	}
	evs = append(evs, event{at: at, txID: txID})
	sort.Slice(evs, func(i, j int) bool { return evs[i].at.Before(evs[j].at) })
	if m.retention > 0 {
		cutoff := evs[len(evs)-1].at.Add(-m.retention)
		i := sort.Search(len(evs), func(i int) bool { return !evs[i].at.Before(cutoff) })
		evs = evs[i:]
	}
	m.events[partyID] = evs
	return nil
}

// Count returns events with from <= at < to.
func (m *Memory) Count(_ context.Context, partyID id.PartyID, from, to time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.events[partyID] {
		if !e.at.Before(from) && e.at.Before(to) {
			n++
		}
	}
	return n, nil
}
