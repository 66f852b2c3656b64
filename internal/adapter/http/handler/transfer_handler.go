package handler

import (
	"context"
	"net/http"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
	GroupTransfer(ctx context.Context, input usecase.GroupTransferInput) (*usecase.GroupTransferResult, error)
}

// TransferHandler handles transfer-related HTTP requests.
// The sender is always the authenticated caller.
type TransferHandler struct {
	transferUC TransferService
	gate       Authorizer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService, gate Authorizer) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, gate: gate}
}

// Transfer sends funds to one receiver.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), p, usecase.OpTransfer, ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transferUC.Transfer(r.Context(), req.ToUseCaseInput(p.AccountID))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromResult(result, p.AccountID))
}

// GroupTransfer pays several receivers in one atomic unit.
func (h *TransferHandler) GroupTransfer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), p, usecase.OpGroupTransfer, ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.GroupTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transferUC.GroupTransfer(r.Context(), req.ToUseCaseInput(p.AccountID))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupTransferFromResult(result, p.AccountID))
}
