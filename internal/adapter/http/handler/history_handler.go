package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
)

// HistoryService defines the behavior needed by HistoryHandler.
type HistoryService interface {
	List(ctx context.Context, filter domain.HistoryFilter) (*usecase.HistoryPage, error)
	Get(ctx context.Context, accountID int64, id string) (*domain.Transaction, error)
	Statement(ctx context.Context, filter domain.HistoryFilter) (*domain.Statement, error)
	ExportCSV(ctx context.Context, filter domain.HistoryFilter, w io.Writer) (int, error)
}

// AccountLookup resolves external identifiers for history views of other accounts.
type AccountLookup interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
}

// HistoryHandler serves transaction history, statements and exports.
type HistoryHandler struct {
	historyUC HistoryService
	accounts  AccountLookup
	gate      Authorizer
	loc       *time.Location
}

// NewHistoryHandler creates a new HistoryHandler. Calendar dates in query
// parameters are interpreted in loc.
func NewHistoryHandler(historyUC HistoryService, accounts AccountLookup, gate Authorizer, loc *time.Location) *HistoryHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryHandler{historyUC: historyUC, accounts: accounts, gate: gate, loc: loc}
}

// List returns one page of history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	page, err := h.historyUC.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryPageFromDomain(page, filter.AccountID))
}

// Get returns one record the viewed account is a party to.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.viewedAccount(w, r)
	if !ok {
		return
	}

	record, err := h.historyUC.Get(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record, accountID))
}

// Statement returns per-day totals for the filtered range.
func (h *HistoryHandler) Statement(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	statement, err := h.historyUC.Statement(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromDomain(statement))
}

// Export streams the filtered history as CSV.
func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	// Render first so a failed query can still produce a JSON error.
	var buf strings.Builder
	if _, err := h.historyUC.ExportCSV(r.Context(), filter, &buf); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="history-%s.csv"`, time.Now().In(h.loc).Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, buf.String())
}

// viewedAccount resolves ?account=. Viewing anyone but yourself needs the
// view-history capability.
func (h *HistoryHandler) viewedAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	p, ok := principalFrom(w, r)
	if !ok {
		return 0, false
	}

	target := domain.NormalizeExternalID(r.URL.Query().Get("account"))
	if target == "" || target == p.ExternalID {
		return p.AccountID, true
	}

	if err := h.gate.Authorize(r.Context(), p, usecase.OpViewHistory, target); err != nil {
		writeDomainError(w, r, err)
		return 0, false
	}

	account, err := h.accounts.GetByExternalID(r.Context(), target)
	if err != nil {
		writeDomainError(w, r, err)
		return 0, false
	}

	return account.ID, true
}

func (h *HistoryHandler) filter(w http.ResponseWriter, r *http.Request) (domain.HistoryFilter, bool) {
	accountID, ok := h.viewedAccount(w, r)
	if !ok {
		return domain.HistoryFilter{}, false
	}

	q := r.URL.Query()

	direction, err := domain.ParseDirection(q.Get("direction"))
	if err != nil {
		writeDomainError(w, r, err)
		return domain.HistoryFilter{}, false
	}

	from, err := parseTimeQuery(r, "from", h.loc)
	if err != nil {
		writeDomainError(w, r, err)
		return domain.HistoryFilter{}, false
	}
	to, err := parseTimeQuery(r, "to", h.loc)
	if err != nil {
		writeDomainError(w, r, err)
		return domain.HistoryFilter{}, false
	}
	// A calendar date as the upper bound includes that whole day.
	if to != nil && isDateOnly(q.Get("to")) {
		next := to.AddDate(0, 0, 1)
		to = &next
	}

	search := q.Get("search")
	if search == "" {
		search = q.Get("q")
	}

	return domain.HistoryFilter{
		AccountID: accountID,
		Direction: direction,
		From:      from,
		To:        to,
		Search:    search,
		Limit:     parseIntQuery(r, "limit", 0),
		Offset:    parseIntQuery(r, "offset", 0),
	}, true
}

func isDateOnly(s string) bool {
	_, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	return err == nil
}
