package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/usecase"
)

// LoginRequest represents a login request.
type LoginRequest struct {
	ExternalID string `json:"external_id"`
	Password   string `json:"password"`
}

// TransferRequest represents a request to send funds to one receiver.
type TransferRequest struct {
	ReceiverID string          `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	Pin        string          `json:"s_pin"`
}

// ToUseCaseInput converts to use case input. The sender is always the caller.
func (r *TransferRequest) ToUseCaseInput(senderID int64) usecase.TransferInput {
	return usecase.TransferInput{
		SenderID:           senderID,
		ReceiverExternalID: r.ReceiverID,
		Amount:             r.Amount,
		Note:               r.Note,
		Pin:                r.Pin,
	}
}

// RecipientItem is one leg of a group transfer.
type RecipientItem struct {
	ReceiverID string          `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// GroupTransferRequest represents a request to pay several receivers at once.
type GroupTransferRequest struct {
	Recipients []RecipientItem `json:"recipients"`
	Note       string          `json:"note,omitempty"`
	Pin        string          `json:"s_pin"`
}

// ToUseCaseInput converts to use case input.
func (r *GroupTransferRequest) ToUseCaseInput(senderID int64) usecase.GroupTransferInput {
	recipients := make([]usecase.Recipient, len(r.Recipients))
	for i, item := range r.Recipients {
		recipients[i] = usecase.Recipient{
			ExternalID: item.ReceiverID,
			Amount:     item.Amount,
		}
	}

	return usecase.GroupTransferInput{
		SenderID:   senderID,
		Recipients: recipients,
		Note:       r.Note,
		Pin:        r.Pin,
	}
}

// TopUpRequest represents a privileged credit.
type TopUpRequest struct {
	TargetID string          `json:"target_id"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note,omitempty"`
	Pin      string          `json:"s_pin"`
}

// ToUseCaseInput converts to use case input.
func (r *TopUpRequest) ToUseCaseInput(actorID int64, requestID string) usecase.TopUpInput {
	return usecase.TopUpInput{
		ActorID:          actorID,
		TargetExternalID: r.TargetID,
		Amount:           r.Amount,
		Note:             r.Note,
		Pin:              r.Pin,
		RequestID:        requestID,
	}
}

// AdjustRequest represents an administrative balance reset.
type AdjustRequest struct {
	TargetID   string              `json:"target_id"`
	NewBalance decimal.NullDecimal `json:"new_balance"`
	Reason     string              `json:"reason"`
	Pin        string              `json:"s_pin"`
}

// ToUseCaseInput converts to use case input.
func (r *AdjustRequest) ToUseCaseInput(actorID int64, requestID string) usecase.AdjustInput {
	return usecase.AdjustInput{
		ActorID:          actorID,
		TargetExternalID: r.TargetID,
		NewBalance:       r.NewBalance,
		Reason:           r.Reason,
		Pin:              r.Pin,
		RequestID:        requestID,
	}
}

// ProvisionRequest creates one or more accounts.
type ProvisionRequest struct {
	Accounts []usecase.ProvisionInput `json:"accounts"`
}
