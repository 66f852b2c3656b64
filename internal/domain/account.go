package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a wallet holder. Balance is mutated only by the ledger engine.
type Account struct {
	ID           int64
	ExternalID   string
	Name         string
	Role         Role
	Department   *string
	Balance      decimal.Decimal
	PasswordHash *string
	PinHash      *string
	Active       bool
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeExternalID trims and upper-cases a human-assigned identifier.
func NormalizeExternalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// HasPin reports whether a transaction authorization code has been set.
func (a *Account) HasPin() bool {
	return a.PinHash != nil && *a.PinHash != ""
}

// ValidateDebit checks that the balance covers amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.Sub(amount).IsNegative() {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// InDepartment reports whether the account carries the given department tag.
func (a *Account) InDepartment(department *string) bool {
	if a.Department == nil || department == nil {
		return false
	}
	return strings.EqualFold(*a.Department, *department)
}

// Snapshot captures the account's identity as it is right now.
func (a *Account) Snapshot() PartySnapshot {
	return PartySnapshot{Name: a.Name, ExternalID: a.ExternalID}
}
