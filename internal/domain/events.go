package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionEvent tells a recipient that a record naming them was committed.
type TransactionEvent struct {
	CreatedAt           time.Time       `json:"created_at"`
	BatchID             *string         `json:"batch_id,omitempty"`
	TransactionID       string          `json:"transaction_id"`
	Type                TransactionType `json:"type"`
	RecipientExternalID string          `json:"recipient"`
	SenderName          string          `json:"sender_name"`
	SenderExternalID    string          `json:"sender_id"`
	Note                string          `json:"note,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
}

// NewTransactionEvent builds the completion event for a committed record.
func NewTransactionEvent(tx *Transaction) TransactionEvent {
	return TransactionEvent{
		CreatedAt:           tx.CreatedAt,
		BatchID:             tx.BatchID,
		TransactionID:       tx.ID,
		Type:                tx.Type,
		RecipientExternalID: tx.Receiver.ExternalID,
		SenderName:          tx.Sender.Name,
		SenderExternalID:    tx.Sender.ExternalID,
		Note:                tx.Note(),
		Amount:              tx.Amount,
	}
}

// EventsFor builds one event per record, in order.
func EventsFor(txs []*Transaction) []TransactionEvent {
	events := make([]TransactionEvent, 0, len(txs))
	for _, tx := range txs {
		events = append(events, NewTransactionEvent(tx))
	}
	return events
}
