// Package store holds the ledger's record stores: in-memory, JSONL file,
// SQLite and PostgreSQL.
package store

import (
	"context"
	"slices"
	"sync"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

// Memory is a non-durable store for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	records []models.AuditRecord
	byTx    map[id.TransactionID]uint64
}

func NewMemory() *Memory {
	return &Memory{byTx: make(map[id.TransactionID]uint64)}
}

func (s *Memory) Append(_ context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Seq != uint64(len(s.records)) {
		return sentinel.ErrConflict
	}
	s.records = append(s.records, clone(rec))
	s.byTx[rec.TransactionID] = rec.Seq
	return nil
}

func (s *Memory) Last(_ context.Context) (models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return models.AuditRecord{}, sentinel.ErrNotFound
	}
	return clone(s.records[len(s.records)-1]), nil
}

func (s *Memory) Range(_ context.Context, from, to uint64) ([]models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rangeOf(s.records, from, to), nil
}

func (s *Memory) ByTransaction(_ context.Context, txID id.TransactionID) (models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.byTx[txID]
	if !ok {
		return models.AuditRecord{}, sentinel.ErrNotFound
	}
	return clone(s.records[seq]), nil
}

func rangeOf(records []models.AuditRecord, from, to uint64) []models.AuditRecord {
	n := uint64(len(records))
	if from >= n || from > to {
		return nil
	}
	end := min(to+1, n)
	out := make([]models.AuditRecord, 0, end-from)
	for _, r := range records[from:end] {
		out = append(out, clone(r))
	}
	return out
}

func clone(rec models.AuditRecord) models.AuditRecord {
	rec.Payload = slices.Clone(rec.Payload)
	return rec
}
