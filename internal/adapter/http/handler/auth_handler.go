package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
	"github.com/iho/campuswallet/internal/usecase"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Login(ctx context.Context, externalID, password string) (*domain.Account, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(p *domain.Principal) (string, error)
	TokenDuration() time.Duration
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUC  Authenticator
	tokens  TokenIssuer
	metrics *metrics.Metrics
}

// NewAuthHandler creates a new auth handler. metrics may be nil.
func NewAuthHandler(authUC Authenticator, tokens TokenIssuer, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		authUC:  authUC,
		tokens:  tokens,
		metrics: m,
	}
}

// Login exchanges an external identifier and password for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.authUC.Login(r.Context(), req.ExternalID, req.Password)
	if err != nil {
		h.observe("failure")
		writeDomainError(w, r, err)
		return
	}

	expiresAt := time.Now().Add(h.tokens.TokenDuration())
	token, err := h.tokens.Generate(usecase.Principal(account))
	if err != nil {
		h.observe("error")
		writeDomainError(w, r, err)
		return
	}

	h.observe("success")
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		Account:   dto.AccountFromDomain(account),
	})
}

func (h *AuthHandler) observe(status string) {
	if h.metrics != nil {
		h.metrics.AuthAttempts.WithLabelValues(status).Inc()
	}
}
