package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
	"github.com/iho/campuswallet/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	ledgerUC LedgerService
	gate     Authorizer
	metrics  *metrics.Metrics
}

// NewLedgerHandler creates a new LedgerHandler. m may be nil.
func NewLedgerHandler(ledgerUC LedgerService, gate Authorizer, m *metrics.Metrics) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, gate: gate, metrics: m}
}

// CheckConsistency checks if the ledger is consistent.
// An inconsistent ledger answers 409 with the full report.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), p, usecase.OpLedgerAudit, ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	report, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil && !errors.Is(err, usecase.ErrInconsistentLedger) {
		writeDomainError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveConsistencyCheck(report.Consistent)
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.ConsistencyFromReport(report))
}
