package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger record.
type TransactionType string

const (
	TypeTransfer   TransactionType = "transfer"
	TypeTopUp      TransactionType = "topup"
	TypeAdjustment TransactionType = "adjustment"
)

// IsValid checks if the type is known.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeTransfer, TypeTopUp, TypeAdjustment:
		return true
	}
	return false
}

// PartySnapshot is a party's name and external identifier frozen at commit time.
// It is stored on the record itself and never re-resolved from the live account.
type PartySnapshot struct {
	Name       string
	ExternalID string
}

// Transaction is an immutable ledger record.
// SenderID == ReceiverID marks a system credit (top-up or adjustment).
type Transaction struct {
	CreatedAt  time.Time
	Metadata   map[string]any
	BatchID    *string
	Sender     PartySnapshot
	Receiver   PartySnapshot
	ID         string
	Type       TransactionType
	Amount     decimal.Decimal
	SenderID   int64
	ReceiverID int64
}

// IsSelfReferential reports whether the record is a system credit.
func (t *Transaction) IsSelfReferential() bool {
	return t.SenderID == t.ReceiverID
}

// Validate checks the record's structural invariants.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return ErrIntegrity
	}
	if t.Type == TypeTransfer && t.IsSelfReferential() {
		return ErrSelfTransfer
	}
	if t.Type != TypeTransfer && !t.IsSelfReferential() {
		return ErrIntegrity
	}
	return nil
}

// DirectionFor returns how the record looks from accountID's side.
func (t *Transaction) DirectionFor(accountID int64) Direction {
	switch {
	case t.IsSelfReferential():
		return DirectionTopUp
	case t.SenderID == accountID:
		return DirectionSent
	default:
		return DirectionReceived
	}
}

// Counterparty returns the other party's snapshot as seen by accountID.
// For system credits it is the issuing authority.
func (t *Transaction) Counterparty(accountID int64) PartySnapshot {
	if t.ReceiverID == accountID {
		return t.Sender
	}
	return t.Receiver
}

// Note returns the free-form note stored in metadata, if any.
func (t *Transaction) Note() string {
	if t.Metadata == nil {
		return ""
	}
	if s, ok := t.Metadata["note"].(string); ok {
		return s
	}
	if s, ok := t.Metadata["reason"].(string); ok {
		return s
	}
	return ""
}

// Metadata keys written by administrative adjustments.
const (
	MetaDirection    = "direction"
	AdjustmentCredit = "credit"
	AdjustmentDebit  = "debit"
)

// IsDebit reports whether the record lowered accountID's balance.
func (t *Transaction) IsDebit(accountID int64) bool {
	if t.Type == TypeAdjustment {
		dir, _ := t.Metadata[MetaDirection].(string)
		return dir == AdjustmentDebit
	}
	return !t.IsSelfReferential() && t.SenderID == accountID
}
