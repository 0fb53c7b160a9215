package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"txguard/internal/compliance/handler/mocks"
	"txguard/internal/compliance/models"
	"txguard/internal/compliance/service"
	"txguard/internal/dispatch"
	id "txguard/pkg/domain"
	dErrors "txguard/pkg/domain-errors"
	"txguard/pkg/testutil"
)

var decidedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	h := New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	r := chi.NewRouter()
	r.Route("/v1", h.Register)
	return r, svc
}

func screenBody() map[string]any {
	return map[string]any{
		"transaction_id": "tx-100",
		"timestamp":      "2026-06-01T11:59:00Z",
		"sender":         map[string]any{"id": "alice", "name": " Alice ", "country": "us"},
		"receiver": map[string]any{"id": "bob", "name": "Bob", "identifiers": []map[string]string{
			{"type": "Address", "value": "0xabc"},
		}},
		"amount":   "50000.00",
		"currency": "usdc",
		"chain":    "ethereum",
	}
}

func TestHandleScreen(t *testing.T) {
	t.Run("returns the verdict", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, tx models.Transaction) (*service.Result, error) {
				assert.Equal(t, id.TransactionID("tx-100"), tx.ID)
				assert.Equal(t, "Alice", tx.Sender.Name)
				assert.Equal(t, "US", tx.Sender.Country)
				assert.Equal(t, "USDC", tx.Currency)
				assert.Equal(t, "address", tx.Receiver.Identifiers[0].Type)
				assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50000)))
				return &service.Result{
					Verdict: models.Verdict{
						TransactionID: tx.ID,
						Status:        models.VerdictFlag,
						Reasons:       []models.Reason{models.ReasonHighRisk},
						Actions:       []models.Action{models.ActionManualReview},
						DecidedAt:     decidedAt,
					},
					Sanctions: []models.ScreeningResult{
						{Check: models.CheckSanctionsSender, Outcome: models.OutcomeNoMatch, Confidence: 0.1},
						{Check: models.CheckSanctionsReceiver, Outcome: models.OutcomeNoMatch, Confidence: 0.2},
					},
					Risk:     models.RiskScore{Score: 90, Level: models.RiskHigh, Degraded: true},
					Record:   models.AuditRecord{Seq: 12, RecordHash: "beef"},
					Dispatch: dispatch.DispatchResult{Queued: true},
				}, nil
			})

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/transactions/screen", screenBody()))
		require.Equal(t, http.StatusOK, rr.Code)

		resp := testutil.UnmarshalResponse[ScreenResponse](t, rr)
		assert.Equal(t, "FLAG", resp.Verdict)
		assert.Equal(t, []string{"high_risk"}, resp.Reasons)
		assert.Equal(t, []string{"manual_review"}, resp.RequiredActions)
		assert.Equal(t, uint64(12), resp.Audit.Seq)
		assert.Equal(t, "queued", resp.Dispatch)
		assert.True(t, resp.Risk.Degraded)
		assert.Len(t, resp.Sanctions, 2)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/v1/transactions/screen", "{"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		router, _ := newRouter(t)
		body := screenBody()
		body["priority"] = "high"
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/transactions/screen", body))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid amount never reaches the service", func(t *testing.T) {
		router, _ := newRouter(t)
		body := screenBody()
		body["amount"] = "fifty"
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/transactions/screen", body))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	t.Run("blank party id", func(t *testing.T) {
		router, _ := newRouter(t)
		body := screenBody()
		body["sender"] = map[string]any{"id": "  ", "name": "Alice"}
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/transactions/screen", body))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	t.Run("ledger unavailable fails closed with 503", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("disk full"), dErrors.CodeUnavailable, "audit ledger unavailable; transaction not cleared"))
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/transactions/screen", screenBody()))
		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable))
	})
}

func TestHandleGetAuditRecord(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().GetAuditRecord(gomock.Any(), id.TransactionID("tx-7")).
			Return(models.AuditRecord{Seq: 3, TransactionID: "tx-7", RecordHash: "aa", Payload: []byte(`{"v":1}`)}, nil)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/transactions/tx-7", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[AuditRecordResponse](t, rr)
		assert.Equal(t, uint64(3), resp.Seq)
		assert.Equal(t, []byte(`{"v":1}`), resp.Payload)
	})

	t.Run("missing", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().GetAuditRecord(gomock.Any(), gomock.Any()).
			Return(models.AuditRecord{}, dErrors.New(dErrors.CodeNotFound, "no audit record for transaction"))
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/transactions/nope", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func TestHandleVerify(t *testing.T) {
	t.Run("range is passed through", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().VerifyLedger(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, from, to *uint64) (service.VerifyResult, error) {
				require.NotNil(t, from)
				require.NotNil(t, to)
				assert.Equal(t, uint64(2), *from)
				assert.Equal(t, uint64(9), *to)
				return service.VerifyResult{Valid: true, From: 2, To: 9, Checked: 8}, nil
			})
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify?from=2&to=9", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[VerifyResponse](t, rr)
		assert.True(t, resp.Valid)
		assert.Nil(t, resp.FirstInvalidSeq)
	})

	t.Run("broken chain answers 409 with the first invalid seq", func(t *testing.T) {
		router, svc := newRouter(t)
		bad := uint64(4)
		svc.EXPECT().VerifyLedger(gomock.Any(), (*uint64)(nil), (*uint64)(nil)).Return(
			service.VerifyResult{Valid: false, To: 9, Checked: 4, FirstInvalidSeq: &bad, Reason: "payload hash mismatch"},
			dErrors.New(dErrors.CodeIntegrityViolation, "ledger integrity violation at seq 4"))
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify", nil))
		require.Equal(t, http.StatusConflict, rr.Code)
		resp := testutil.UnmarshalResponse[VerifyResponse](t, rr)
		assert.False(t, resp.Valid)
		require.NotNil(t, resp.FirstInvalidSeq)
		assert.Equal(t, uint64(4), *resp.FirstInvalidSeq)
	})

	t.Run("non-numeric bound", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/audit/verify?from=-1&to=3", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}
