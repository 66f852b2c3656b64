package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{
			name:    "peer transfer",
			tx:      Transaction{SenderID: 1, ReceiverID: 2, Type: TypeTransfer, Amount: decimal.NewFromInt(30)},
			wantErr: nil,
		},
		{
			name:    "top-up is self-referential",
			tx:      Transaction{SenderID: 2, ReceiverID: 2, Type: TypeTopUp, Amount: decimal.NewFromInt(30)},
			wantErr: nil,
		},
		{
			name:    "zero amount",
			tx:      Transaction{SenderID: 1, ReceiverID: 2, Type: TypeTransfer, Amount: decimal.Zero},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "self transfer",
			tx:      Transaction{SenderID: 1, ReceiverID: 1, Type: TypeTransfer, Amount: decimal.NewFromInt(1)},
			wantErr: ErrSelfTransfer,
		},
		{
			name:    "top-up between two accounts",
			tx:      Transaction{SenderID: 1, ReceiverID: 2, Type: TypeTopUp, Amount: decimal.NewFromInt(1)},
			wantErr: ErrIntegrity,
		},
		{
			name:    "unknown type",
			tx:      Transaction{SenderID: 1, ReceiverID: 2, Type: "refund", Amount: decimal.NewFromInt(1)},
			wantErr: ErrIntegrity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransaction_DirectionAndCounterparty(t *testing.T) {
	alice := PartySnapshot{Name: "Alice", ExternalID: "A1"}
	bob := PartySnapshot{Name: "Bob", ExternalID: "B1"}
	system := PartySnapshot{Name: "Campus Wallet", ExternalID: "SYSTEM"}

	transfer := &Transaction{SenderID: 1, ReceiverID: 2, Sender: alice, Receiver: bob, Type: TypeTransfer}
	topup := &Transaction{SenderID: 2, ReceiverID: 2, Sender: system, Receiver: bob, Type: TypeTopUp}

	if d := transfer.DirectionFor(1); d != DirectionSent {
		t.Errorf("sender sees %q", d)
	}
	if d := transfer.DirectionFor(2); d != DirectionReceived {
		t.Errorf("receiver sees %q", d)
	}
	if d := topup.DirectionFor(2); d != DirectionTopUp {
		t.Errorf("top-up target sees %q", d)
	}

	if cp := transfer.Counterparty(1); cp != bob {
		t.Errorf("sender counterparty = %+v", cp)
	}
	if cp := transfer.Counterparty(2); cp != alice {
		t.Errorf("receiver counterparty = %+v", cp)
	}
	if cp := topup.Counterparty(2); cp != system {
		t.Errorf("top-up counterparty = %+v", cp)
	}
}

func TestTransaction_IsDebit(t *testing.T) {
	transfer := &Transaction{SenderID: 1, ReceiverID: 2, Type: TypeTransfer}
	credit := &Transaction{SenderID: 3, ReceiverID: 3, Type: TypeAdjustment, Metadata: map[string]any{MetaDirection: AdjustmentCredit}}
	debit := &Transaction{SenderID: 3, ReceiverID: 3, Type: TypeAdjustment, Metadata: map[string]any{MetaDirection: AdjustmentDebit}}

	if !transfer.IsDebit(1) || transfer.IsDebit(2) {
		t.Error("transfer debits only the sender")
	}
	if credit.IsDebit(3) {
		t.Error("credit adjustment is not a debit")
	}
	if !debit.IsDebit(3) {
		t.Error("debit adjustment is a debit")
	}
}

func TestNewTransactionEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := &Transaction{
		ID:        "01HX",
		SenderID:  1,
		Sender:    PartySnapshot{Name: "Alice", ExternalID: "A1"},
		Receiver:  PartySnapshot{Name: "Bob", ExternalID: "B1"},
		Amount:    decimal.NewFromInt(30),
		Type:      TypeTransfer,
		Metadata:  map[string]any{"note": "lunch"},
		CreatedAt: now,
	}

	ev := NewTransactionEvent(tx)
	if ev.RecipientExternalID != "B1" || ev.SenderName != "Alice" || ev.Note != "lunch" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.Amount.Equal(decimal.NewFromInt(30)) || !ev.CreatedAt.Equal(now) {
		t.Fatalf("unexpected event %+v", ev)
	}

	if got := EventsFor([]*Transaction{tx, tx}); len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
}
