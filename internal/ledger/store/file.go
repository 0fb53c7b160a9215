package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

// handle is the subset of *os.File the store writes through.
type handle interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
	Sync() error
	Close() error
}

// File appends one JSON record per line and fsyncs before acknowledging.
// Existing records are indexed in memory when the file is opened. A failed
// write or sync is cut back to the last acknowledged byte, so the file never
// holds a line the index does not.
type File struct {
	mu      sync.RWMutex
	f       handle
	size    int64
	broken  error
	records []models.AuditRecord
	byTx    map[id.TransactionID]uint64
}

// OpenFile opens or creates a JSONL ledger. A torn final line left by a crash
// mid-write was never acknowledged and is truncated; any other unreadable line
// is reported as an integrity failure.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	return openHandle(f)
}

func openHandle(f handle) (*File, error) {
	s := &File{f: f, byTx: make(map[id.TransactionID]uint64)}
	if err := s.load(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *File) load() error {
	data, err := io.ReadAll(s.f)
	if err != nil {
		return fmt.Errorf("read ledger file: %w", err)
	}
	var offset int64
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		lineEnd := offset + int64(len(raw)) + 1
		if lineEnd > int64(len(data)) {
			// unterminated tail: the write never completed
			return s.truncate(offset)
		}
		var rec models.AuditRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("ledger file line %d: %w: %v", line, sentinel.ErrIntegrity, err)
		}
		s.records = append(s.records, rec)
		s.byTx[rec.TransactionID] = uint64(len(s.records) - 1)
		offset = lineEnd
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan ledger file: %w", err)
	}
	s.size, err = s.f.Seek(0, io.SeekEnd)
	return err
}

func (s *File) truncate(size int64) error {
	if err := s.f.Truncate(size); err != nil {
		return fmt.Errorf("truncate torn ledger tail: %w", err)
	}
	if _, err := s.f.Seek(size, io.SeekStart); err != nil {
		return fmt.Errorf("seek ledger file: %w", err)
	}
	s.size = size
	return nil
}

// rollback discards bytes written past the last acknowledged record. If that
// fails the store refuses further appends.
func (s *File) rollback(cause error) error {
	if err := s.truncate(s.size); err != nil {
		s.broken = fmt.Errorf("%w: unacknowledged bytes could not be removed: %v", sentinel.ErrIntegrity, err)
		return errors.Join(cause, s.broken)
	}
	return cause
}

func (s *File) Append(ctx context.Context, rec models.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Position in the index is authoritative; records[i].Seq may be tampered.
	if s.broken != nil {
		return s.broken
	}
	if rec.Seq != uint64(len(s.records)) {
		return sentinel.ErrConflict
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	b = append(b, '\n')
	if _, err := s.f.Write(b); err != nil {
		return s.rollback(fmt.Errorf("write ledger file: %w", err))
	}
	if err := s.f.Sync(); err != nil {
		return s.rollback(fmt.Errorf("sync ledger file: %w", err))
	}
	s.size += int64(len(b))
	s.records = append(s.records, clone(rec))
	s.byTx[rec.TransactionID] = rec.Seq
	return nil
}

func (s *File) Last(_ context.Context) (models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return models.AuditRecord{}, sentinel.ErrNotFound
	}
	return clone(s.records[len(s.records)-1]), nil
}

func (s *File) Range(_ context.Context, from, to uint64) ([]models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rangeOf(s.records, from, to), nil
}

func (s *File) ByTransaction(_ context.Context, txID id.TransactionID) (models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byTx[txID]
	if !ok {
		return models.AuditRecord{}, sentinel.ErrNotFound
	}
	return clone(s.records[i]), nil
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
