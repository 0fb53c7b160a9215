// Package ledger is the append-only, hash-chained audit log of screening
// decisions. It is the single writer of audit records:
//
//	record_hash(n) = H(prev_hash(n) || payload_hash(n)),  prev_hash(0) = Genesis
//
// Genesis is the fixed anchor the chain starts from, not the record hash of
// sequence 0. Record 0 is hashed like every other record, so altering its
// payload breaks the chain at 0.
//
// Appends are serialized and durable before they return. Readers only see
// records up to the committed head.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	dErrors "txguard/pkg/domain-errors"
	"txguard/pkg/platform/sentinel"
)

const (
	defaultAppendTimeout = 2 * time.Second
	verifyBatch          = 512
)

// Head describes the last committed record.
type Head struct {
	Count      uint64 // committed records; the next append gets Seq == Count
	Seq        uint64 // valid when Count > 0
	RecordHash string // Genesis when empty
}

// Empty reports whether nothing has been committed.
func (h Head) Empty() bool {
	return h.Count == 0
}

// Report is the outcome of a verification run.
type Report struct {
	Valid           bool    `json:"valid"`
	From            uint64  `json:"from"`
	To              uint64  `json:"to"`
	Checked         uint64  `json:"checked"`
	FirstInvalidSeq *uint64 `json:"first_invalid_seq,omitempty"`
}

// Ledger owns the hash chain.
type Ledger struct {
	mu            sync.Mutex
	store         Store
	hasher        Hasher
	appendTimeout time.Duration
	head          atomic.Pointer[Head]
	compromised   atomic.Pointer[IntegrityError]
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithHasher(h Hasher) Option {
	return func(l *Ledger) { l.hasher = h }
}

func WithAppendTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.appendTimeout = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Open recovers the head from the store's last record. A head record that
// does not verify marks the ledger compromised but does not prevent opening,
// so the damage can be inspected.
func Open(ctx context.Context, store Store, opts ...Option) (*Ledger, error) {
	sha, _ := NewHasher(AlgorithmSHA256)
	l := &Ledger{
		store:         store,
		hasher:        sha,
		appendTimeout: defaultAppendTimeout,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	head, err := l.recoverHead(ctx)
	if err != nil {
		return nil, err
	}
	l.head.Store(head)
	l.metrics.SetHead(head.Seq)
	if !head.Empty() {
		l.logger.InfoContext(ctx, "ledger head recovered",
			"seq", head.Seq,
			"record_hash", head.RecordHash,
			"algorithm", l.hasher.Algorithm(),
		)
	}
	return l, nil
}

func (l *Ledger) recoverHead(ctx context.Context) (*Head, error) {
	last, err := l.store.Last(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Head{RecordHash: Genesis}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recover ledger head: %w", err)
	}
	if l.hasher.PayloadHash(last.Payload) != last.PayloadHash ||
		l.hasher.RecordHash(last.PrevHash, last.PayloadHash) != last.RecordHash {
		l.markCompromised(ctx, &IntegrityError{
			Seq:    last.Seq,
			Reason: "head record does not verify with " + l.hasher.Algorithm(),
		})
	}
	return &Head{Count: last.Seq + 1, Seq: last.Seq, RecordHash: last.RecordHash}, nil
}

// Head returns the committed head.
func (l *Ledger) Head() Head {
	return *l.head.Load()
}

// Algorithm names the configured hash.
func (l *Ledger) Algorithm() string {
	return l.hasher.Algorithm()
}

// Append chains and durably stores one record. On failure nothing is
// committed and the caller must not act on the verdict.
func (l *Ledger) Append(ctx context.Context, e Entry) (models.AuditRecord, error) {
	start := time.Now()
	payload, err := CanonicalPayload(e)
	if err != nil {
		return models.AuditRecord{}, err
	}
	payloadHash := l.hasher.PayloadHash(payload)

	l.mu.Lock()
	defer l.mu.Unlock()

	// The store budget starts once this writer holds the chain.
	ctx, cancel := context.WithTimeout(ctx, l.appendTimeout)
	defer cancel()

	head := l.head.Load()
	rec := models.AuditRecord{
		Seq:           head.Count,
		TransactionID: e.Verdict.TransactionID,
		PayloadHash:   payloadHash,
		PrevHash:      head.RecordHash,
		RecordHash:    l.hasher.RecordHash(head.RecordHash, payloadHash),
		Timestamp:     l.now().UTC().Truncate(time.Microsecond),
		Payload:       payload,
	}

	if err := l.store.Append(ctx, rec); err != nil {
		if l.resync(ctx, rec) {
			l.logger.WarnContext(ctx, "ledger append reported failure but record is durable",
				"seq", rec.Seq,
				"error", err,
			)
		} else {
			l.metrics.IncAppendFailure()
			l.logger.ErrorContext(ctx, "CRITICAL: ledger append failed",
				"seq", rec.Seq,
				"transaction_id", rec.TransactionID,
				"error", err,
			)
			kind := sentinel.ErrUnavailable
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				kind = sentinel.ErrTimeout
			}
			return models.AuditRecord{}, fmt.Errorf("ledger append seq %d: %w: %w", rec.Seq, kind, err)
		}
	}

	l.head.Store(&Head{Count: rec.Seq + 1, Seq: rec.Seq, RecordHash: rec.RecordHash})
	l.metrics.ObserveAppend(time.Since(start), rec.Seq)
	return rec, nil
}

// resync re-reads the store after a failed append. It reports whether rec was
// in fact committed; otherwise the head follows whatever the store holds.
// Caller holds l.mu.
func (l *Ledger) resync(ctx context.Context, rec models.AuditRecord) bool {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.appendTimeout)
	defer cancel()
	last, err := l.store.Last(rctx)
	if err != nil {
		return false
	}
	if last.Seq == rec.Seq && last.RecordHash == rec.RecordHash {
		return true
	}
	if cur := l.head.Load(); cur.Empty() || last.Seq > cur.Seq {
		l.logger.ErrorContext(ctx, "CRITICAL: ledger store advanced outside this writer",
			"head_seq", cur.Seq,
			"store_seq", last.Seq,
		)
		l.head.Store(&Head{Count: last.Seq + 1, Seq: last.Seq, RecordHash: last.RecordHash})
	}
	return false
}

// GetByTransaction returns the latest committed record for txID.
func (l *Ledger) GetByTransaction(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error) {
	rec, err := l.store.ByTransaction(ctx, txID)
	if err != nil {
		return models.AuditRecord{}, err
	}
	if rec.Seq >= l.head.Load().Count {
		return models.AuditRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

// Records returns committed records in [from, to].
func (l *Ledger) Records(ctx context.Context, from, to uint64) ([]models.AuditRecord, error) {
	if err := l.checkRange(from, to); err != nil {
		return nil, err
	}
	return l.store.Range(ctx, from, to)
}

func (l *Ledger) checkRange(from, to uint64) error {
	head := l.head.Load()
	if head.Empty() {
		return dErrors.New(dErrors.CodeBadRequest, "ledger is empty")
	}
	if from > to || to > head.Seq {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("range [%d,%d] outside committed ledger [0,%d]", from, to, head.Seq))
	}
	return nil
}

// VerifyAll verifies every committed record. An empty ledger is valid.
func (l *Ledger) VerifyAll(ctx context.Context) (Report, error) {
	head := l.Head()
	if head.Empty() {
		return Report{Valid: true}, nil
	}
	return l.Verify(ctx, 0, head.Seq)
}

// Verify recomputes the chain over [from, to]. The first failure is returned
// as an *IntegrityError and remembered; appends continue regardless.
func (l *Ledger) Verify(ctx context.Context, from, to uint64) (Report, error) {
	if err := l.checkRange(from, to); err != nil {
		return Report{}, err
	}
	head := l.Head()
	report := Report{From: from, To: to}

	prev := Genesis
	if from > 0 {
		anchor, err := l.store.Range(ctx, from-1, from-1)
		if err != nil {
			return report, fmt.Errorf("read ledger: %w", err)
		}
		if len(anchor) != 1 || anchor[0].Seq != from-1 {
			return l.fail(ctx, report, &IntegrityError{Seq: from - 1, Reason: "record missing"})
		}
		prev = anchor[0].RecordHash
	}

	for cursor := from; cursor <= to; {
		end := min(cursor+verifyBatch-1, to)
		recs, err := l.store.Range(ctx, cursor, end)
		if err != nil {
			return report, fmt.Errorf("read ledger: %w", err)
		}
		for expected := cursor; expected <= end; expected++ {
			i := int(expected - cursor)
			if i >= len(recs) || recs[i].Seq != expected {
				return l.fail(ctx, report, &IntegrityError{Seq: expected, Reason: "record missing"})
			}
			if ie := l.check(recs[i], prev); ie != nil {
				return l.fail(ctx, report, ie)
			}
			prev = recs[i].RecordHash
			report.Checked++
		}
		cursor = end + 1
	}

	if to == head.Seq && prev != head.RecordHash {
		return l.fail(ctx, report, &IntegrityError{Seq: to, Reason: "record hash differs from committed head"})
	}
	report.Valid = true
	return report, nil
}

func (l *Ledger) check(rec models.AuditRecord, prev string) *IntegrityError {
	switch {
	case rec.PrevHash != prev:
		return &IntegrityError{Seq: rec.Seq, Reason: "previous hash does not link"}
	case l.hasher.PayloadHash(rec.Payload) != rec.PayloadHash:
		return &IntegrityError{Seq: rec.Seq, Reason: "payload hash mismatch"}
	case l.hasher.RecordHash(rec.PrevHash, rec.PayloadHash) != rec.RecordHash:
		return &IntegrityError{Seq: rec.Seq, Reason: "record hash mismatch"}
	}
	return nil
}

func (l *Ledger) fail(ctx context.Context, report Report, ie *IntegrityError) (Report, error) {
	l.markCompromised(ctx, ie)
	seq := ie.Seq
	report.Valid = false
	report.FirstInvalidSeq = &seq
	return report, ie
}

func (l *Ledger) markCompromised(ctx context.Context, ie *IntegrityError) {
	l.metrics.IncIntegrityFailure()
	l.logger.ErrorContext(ctx, "CRITICAL: ledger integrity violation",
		"seq", ie.Seq,
		"reason", ie.Reason,
	)
	for {
		cur := l.compromised.Load()
		if cur != nil && cur.Seq <= ie.Seq {
			return
		}
		if l.compromised.CompareAndSwap(cur, ie) {
			return
		}
	}
}

// Compromised reports whether any verification has failed since Open, and the
// lowest failing sequence seen.
func (l *Ledger) Compromised() (*IntegrityError, bool) {
	ie := l.compromised.Load()
	return ie, ie != nil
}
