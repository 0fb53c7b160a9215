package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/internal/compliance/models"
	"txguard/internal/platform/sqlite"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

type recordStore interface {
	Append(ctx context.Context, rec models.AuditRecord) error
	Last(ctx context.Context) (models.AuditRecord, error)
	Range(ctx context.Context, from, to uint64) ([]models.AuditRecord, error)
	ByTransaction(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error)
}

var recordedAt = time.Date(2026, 6, 1, 12, 0, 0, 123456000, time.UTC)

func record(seq uint64, txID string) models.AuditRecord {
	return models.AuditRecord{
		Seq:           seq,
		TransactionID: id.TransactionID(txID),
		PayloadHash:   fmt.Sprintf("payload-%d", seq),
		PrevHash:      fmt.Sprintf("prev-%d", seq),
		RecordHash:    fmt.Sprintf("record-%d", seq),
		Timestamp:     recordedAt.Add(time.Duration(seq) * time.Millisecond),
		Payload:       []byte(fmt.Sprintf(`{"seq":%d}`, seq)),
	}
}

// runContract exercises the behaviour every ledger store must share.
func runContract(t *testing.T, s recordStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Last(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.ByTransaction(ctx, "tx-a")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Append(ctx, record(0, "tx-a")))
	require.NoError(t, s.Append(ctx, record(1, "tx-b")))
	require.NoError(t, s.Append(ctx, record(2, "tx-a")))

	err = s.Append(ctx, record(1, "tx-c"))
	require.ErrorIs(t, err, sentinel.ErrConflict, "sequence numbers are never reused")

	last, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, record(2, "tx-a"), last)

	recs, err := s.Range(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(1), recs[0].Seq)
	assert.Equal(t, uint64(2), recs[1].Seq)

	recs, err = s.Range(ctx, 7, 9)
	require.NoError(t, err)
	assert.Empty(t, recs)

	latest, err := s.ByTransaction(ctx, "tx-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Seq, "latest record for the transaction")
}

func TestMemory_Contract(t *testing.T) {
	runContract(t, NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Append(ctx, record(0, "tx-a")))

	got, err := s.Last(ctx)
	require.NoError(t, err)
	got.Payload[0] = 'X'

	again, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.Payload[0])
}

func TestFile_Contract(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	runContract(t, s)
}

func TestFile_ReopenRecoversRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	s, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record(0, "tx-a")))
	require.NoError(t, s.Append(ctx, record(1, "tx-b")))
	require.NoError(t, s.Close())

	s, err = OpenFile(path)
	require.NoError(t, err)
	defer s.Close()
	last, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, record(1, "tx-b"), last)
	require.NoError(t, s.Append(ctx, record(2, "tx-c")))
}

func TestFile_TruncatesTornTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	s, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record(0, "tx-a")))
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":1,"transaction_id":"tx-b","payl`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err = OpenFile(path)
	require.NoError(t, err)
	defer s.Close()
	last, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), last.Seq)
	require.NoError(t, s.Append(ctx, record(1, "tx-b")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"payl{`)
}

func TestFile_CorruptMiddleLineIsIntegrityFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n{}\n"), 0o600))
	_, err := OpenFile(path)
	assert.ErrorIs(t, err, sentinel.ErrIntegrity)
}

// faultyHandle wraps a real ledger file and fails the next write, sync or
// truncate on demand. A failing write still lands half of its bytes.
type faultyHandle struct {
	*os.File
	failWrite, failSync, failTruncate bool
}

var errDisk = errors.New("input/output error")

func (h *faultyHandle) Write(p []byte) (int, error) {
	if h.failWrite {
		h.failWrite = false
		n, _ := h.File.Write(p[:len(p)/2])
		return n, errDisk
	}
	return h.File.Write(p)
}

func (h *faultyHandle) Sync() error {
	if h.failSync {
		h.failSync = false
		return errDisk
	}
	return h.File.Sync()
}

func (h *faultyHandle) Truncate(size int64) error {
	if h.failTruncate {
		return errDisk
	}
	return h.File.Truncate(size)
}

func openFaulty(t *testing.T, path string) (*File, *faultyHandle) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	h := &faultyHandle{File: f}
	s, err := openHandle(h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, h
}

func TestFile_FailedAppendLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name   string
		inject func(h *faultyHandle)
	}{
		{"partial write", func(h *faultyHandle) { h.failWrite = true }},
		{"sync after full write", func(h *faultyHandle) { h.failSync = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "ledger.jsonl")
			s, h := openFaulty(t, path)
			require.NoError(t, s.Append(ctx, record(0, "tx-a")))

			tt.inject(h)
			assert.ErrorIs(t, s.Append(ctx, record(1, "tx-b")), errDisk)

			last, err := s.Last(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), last.Seq)

			require.NoError(t, s.Append(ctx, record(1, "tx-b")), "the same seq is retried")
			require.NoError(t, s.Close())

			reopened, err := OpenFile(path)
			require.NoError(t, err)
			defer reopened.Close()
			recs, err := reopened.Range(ctx, 0, 10)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, record(0, "tx-a"), recs[0])
			assert.Equal(t, record(1, "tx-b"), recs[1])
		})
	}
}

func TestFile_UnrecoverableWriteRefusesAppends(t *testing.T) {
	ctx := context.Background()
	s, h := openFaulty(t, filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, s.Append(ctx, record(0, "tx-a")))

	h.failSync = true
	h.failTruncate = true
	err := s.Append(ctx, record(1, "tx-b"))
	assert.ErrorIs(t, err, errDisk)
	assert.ErrorIs(t, err, sentinel.ErrIntegrity)

	h.failTruncate = false
	assert.ErrorIs(t, s.Append(ctx, record(1, "tx-b")), sentinel.ErrIntegrity)
}

func TestSQLite_Contract(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLite(context.Background(), db)
	require.NoError(t, err)
	runContract(t, s)

	_, err = NewSQLite(context.Background(), db)
	require.NoError(t, err, "schema creation is idempotent")
}
