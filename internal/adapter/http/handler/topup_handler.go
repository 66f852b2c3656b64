package handler

import (
	"context"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
)

// TopUpService defines the behavior needed by TopUpHandler.
type TopUpService interface {
	TopUp(ctx context.Context, input usecase.TopUpInput) (*usecase.CreditResult, error)
	Adjust(ctx context.Context, input usecase.AdjustInput) (*usecase.CreditResult, error)
}

// TopUpHandler handles privileged credits and balance adjustments.
type TopUpHandler struct {
	topUpUC TopUpService
	gate    Authorizer
}

// NewTopUpHandler creates a new TopUpHandler.
func NewTopUpHandler(topUpUC TopUpService, gate Authorizer) *TopUpHandler {
	return &TopUpHandler{topUpUC: topUpUC, gate: gate}
}

// TopUp credits a target account.
func (h *TopUpHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req dto.TopUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.gate.Authorize(r.Context(), p, usecase.OpTopUp, req.TargetID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.topUpUC.TopUp(r.Context(), req.ToUseCaseInput(p.AccountID, chimiddleware.GetReqID(r.Context())))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreditFromResult(result))
}

// Adjust resets a target balance to an absolute value.
func (h *TopUpHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), p, usecase.OpAdjust, ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.AdjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.NewBalance.Valid {
		writeDomainError(w, r, domain.ErrNewBalanceRequired)
		return
	}

	result, err := h.topUpUC.Adjust(r.Context(), req.ToUseCaseInput(p.AccountID, chimiddleware.GetReqID(r.Context())))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreditFromResult(result))
}
