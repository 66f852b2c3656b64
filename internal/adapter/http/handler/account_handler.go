package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
)

// Authorizer is the policy gate consulted before every privileged operation.
type Authorizer interface {
	Authorize(ctx context.Context, p *domain.Principal, op usecase.Operation, target string) error
}

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetPublicProfile(ctx context.Context, externalID string) (*usecase.PublicProfile, error)
	Provision(ctx context.Context, actorID int64, inputs []usecase.ProvisionInput) ([]*domain.Account, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	gate      Authorizer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, gate Authorizer) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, gate: gate}
}

// Me returns the caller's own account, including the balance.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), p.AccountID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Get returns the public profile of any account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_EXTERNAL_ID", "missing account identifier")
		return
	}

	profile, err := h.accountUC.GetPublicProfile(r.Context(), externalID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfileFromUseCase(profile))
}

// Provision creates accounts.
func (h *AccountHandler) Provision(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), p, usecase.OpProvision, ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.ProvisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	accounts, err := h.accountUC.Provision(r.Context(), p.AccountID, req.Accounts)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), p, usecase.OpProvision, ""); err != nil {
		writeDomainError(w, r, err)
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}
