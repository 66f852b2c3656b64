package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Money formats an amount with two decimal places.
func Money(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountScale)
}

// AccountResponse is the owner's or an administrator's view of an account.
type AccountResponse struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Department *string   `json:"department,omitempty"`
	Balance    string    `json:"balance"`
	Active     bool      `json:"active"`
	HasPin     bool      `json:"has_pin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:         a.ID,
		ExternalID: a.ExternalID,
		Name:       a.Name,
		Role:       string(a.Role),
		Department: a.Department,
		Balance:    Money(a.Balance),
		Active:     a.Active,
		HasPin:     a.HasPin(),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a list of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// PartyResponse is a frozen party snapshot.
type PartyResponse struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

// TransactionResponse is a ledger record as seen by one of its parties.
type TransactionResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Direction    string         `json:"direction"`
	Amount       string         `json:"amount"`
	Counterparty PartyResponse  `json:"counterparty"`
	Note         string         `json:"note,omitempty"`
	BatchID      *string        `json:"batch_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TransactionFromDomain converts a record to the view of accountID.
func TransactionFromDomain(t *domain.Transaction, accountID int64) *TransactionResponse {
	counterparty := t.Counterparty(accountID)
	return &TransactionResponse{
		ID:        t.ID,
		Type:      string(t.Type),
		Direction: string(t.DirectionFor(accountID)),
		Amount:    Money(t.Amount),
		Counterparty: PartyResponse{
			Name:       counterparty.Name,
			ExternalID: counterparty.ExternalID,
		},
		Note:      t.Note(),
		BatchID:   t.BatchID,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt,
	}
}

// TransactionsFromDomain converts records to the view of accountID.
func TransactionsFromDomain(records []*domain.Transaction, accountID int64) []*TransactionResponse {
	result := make([]*TransactionResponse, len(records))
	for i, t := range records {
		result[i] = TransactionFromDomain(t, accountID)
	}
	return result
}

// TransferResponse is the sender's view of a committed transfer.
type TransferResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Balance     string               `json:"balance"`
}

// TransferFromResult converts a transfer result.
func TransferFromResult(res *usecase.TransferResult, senderID int64) *TransferResponse {
	return &TransferResponse{
		Transaction: TransactionFromDomain(res.Transaction, senderID),
		Balance:     Money(res.SenderBalance),
	}
}

// GroupTransferResponse is the sender's view of a committed group transfer.
type GroupTransferResponse struct {
	BatchID      string                 `json:"batch_id"`
	Transactions []*TransactionResponse `json:"transactions"`
	Total        string                 `json:"total"`
	Balance      string                 `json:"balance"`
}

// GroupTransferFromResult converts a group transfer result.
func GroupTransferFromResult(res *usecase.GroupTransferResult, senderID int64) *GroupTransferResponse {
	return &GroupTransferResponse{
		BatchID:      res.BatchID,
		Transactions: TransactionsFromDomain(res.Transactions, senderID),
		Total:        Money(res.Total),
		Balance:      Money(res.SenderBalance),
	}
}

// CreditResponse describes a committed top-up or adjustment from the target's side.
type CreditResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Target      string               `json:"target_id"`
	Balance     string               `json:"balance"`
}

// CreditFromResult converts a top-up or adjustment result.
func CreditFromResult(res *usecase.CreditResult) *CreditResponse {
	return &CreditResponse{
		Transaction: TransactionFromDomain(res.Transaction, res.Transaction.ReceiverID),
		Target:      res.Transaction.Receiver.ExternalID,
		Balance:     Money(res.Balance),
	}
}

// HistoryPageResponse is one page of history.
type HistoryPageResponse struct {
	Items  []*TransactionResponse `json:"items"`
	Total  int64                  `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// HistoryPageFromDomain converts a history page for accountID.
func HistoryPageFromDomain(page *usecase.HistoryPage, accountID int64) *HistoryPageResponse {
	return &HistoryPageResponse{
		Items:  TransactionsFromDomain(page.Items, accountID),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

// StatementDayResponse is one day of a statement.
type StatementDayResponse struct {
	Date     string `json:"date"`
	Received string `json:"received"`
	Sent     string `json:"sent"`
	Net      string `json:"net"`
	Count    int    `json:"count"`
}

// StatementResponse is a per-day summary.
type StatementResponse struct {
	Days          []StatementDayResponse `json:"days"`
	TotalReceived string                 `json:"total_received"`
	TotalSent     string                 `json:"total_sent"`
	Net           string                 `json:"net"`
}

// StatementFromDomain converts a statement.
func StatementFromDomain(st *domain.Statement) *StatementResponse {
	days := make([]StatementDayResponse, len(st.Days))
	for i, d := range st.Days {
		days[i] = StatementDayResponse{
			Date:     d.Date,
			Received: Money(d.Received),
			Sent:     Money(d.Sent),
			Net:      Money(d.Net),
			Count:    d.Count,
		}
	}

	return &StatementResponse{
		Days:          days,
		TotalReceived: Money(st.TotalReceived),
		TotalSent:     Money(st.TotalSent),
		Net:           Money(st.Net),
	}
}

// ConsistencyResponse reports the conservation check.
type ConsistencyResponse struct {
	Consistent        bool   `json:"consistent"`
	TotalBalances     string `json:"total_balances"`
	TotalTopUps       string `json:"total_topups"`
	CreditAdjustments string `json:"credit_adjustments"`
	DebitAdjustments  string `json:"debit_adjustments"`
	Expected          string `json:"expected"`
	Difference        string `json:"difference"`
}

// ConsistencyFromReport converts a consistency report.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		Consistent:        r.Consistent,
		TotalBalances:     Money(r.Totals.Balances),
		TotalTopUps:       Money(r.Totals.TopUps),
		CreditAdjustments: Money(r.Totals.CreditAdjustments),
		DebitAdjustments:  Money(r.Totals.DebitAdjustments),
		Expected:          Money(r.Expected),
		Difference:        Money(r.Difference),
	}
}

// LoginResponse carries an issued token.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Account   *AccountResponse `json:"account"`
}

// ProfileResponse is the public view of another account.
type ProfileResponse struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

// ProfileFromUseCase converts a public profile.
func ProfileFromUseCase(p *usecase.PublicProfile) *ProfileResponse {
	return &ProfileResponse{
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Role:       string(p.Role),
	}
}
