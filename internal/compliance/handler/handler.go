package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"txguard/internal/compliance/models"
	"txguard/internal/compliance/service"
	id "txguard/pkg/domain"
	dErrors "txguard/pkg/domain-errors"
	"txguard/pkg/platform/httputil"
	"txguard/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service defines the interface for compliance operations.
type Service interface {
	Submit(ctx context.Context, tx models.Transaction) (*service.Result, error)
	GetAuditRecord(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error)
	VerifyLedger(ctx context.Context, from, to *uint64) (service.VerifyResult, error)
}

// Handler wires compliance endpoints to the compliance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a compliance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transactions/screen", h.HandleScreen)
	r.Get("/audit/transactions/{id}", h.HandleGetAuditRecord)
	r.Get("/audit/verify", h.HandleVerify)
}

// HandleScreen handles POST /v1/transactions/screen.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ScreenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Submit(ctx, req.Transaction())
	if err != nil {
		level := slog.LevelError
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			level = slog.LevelWarn
		}
		h.logger.Log(ctx, level, "transaction screening failed",
			"request_id", requestID,
			"transaction_id", req.TransactionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction screening completed",
		"request_id", requestID,
		"transaction_id", req.TransactionID,
		"verdict", result.Verdict.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleGetAuditRecord handles GET /v1/audit/transactions/{id}.
func (h *Handler) HandleGetAuditRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, dErrors.MessageOf(err)))
		return
	}

	rec, err := h.service.GetAuditRecord(ctx, txID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "audit record lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"transaction_id", txID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleVerify handles GET /v1/audit/verify?from=&to=. Without bounds the
// whole ledger is verified. A broken chain answers 409 with the report.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, err := optionalSeq(r, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := optionalSeq(r, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.VerifyLedger(ctx, from, to)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIntegrityViolation) {
			httputil.WriteJSON(w, http.StatusConflict, FromVerify(result))
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerify(result))
}

func optionalSeq(r *http.Request, name string) (*uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return &v, nil
}
