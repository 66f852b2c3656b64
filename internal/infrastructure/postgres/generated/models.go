package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID           int64              `json:"id"`
	ExternalID   string             `json:"external_id"`
	Name         string             `json:"name"`
	Role         string             `json:"role"`
	Department   *string            `json:"department"`
	Balance      pgtype.Numeric     `json:"balance"`
	PasswordHash *string            `json:"password_hash"`
	PinHash      *string            `json:"pin_hash"`
	Active       bool               `json:"active"`
	Version      int64              `json:"version"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type AuditLog struct {
	ID           pgtype.UUID        `json:"id"`
	ActorID      int64              `json:"actor_id"`
	Action       string             `json:"action"`
	ResourceType string             `json:"resource_type"`
	ResourceID   string             `json:"resource_id"`
	RequestID    *string            `json:"request_id"`
	BeforeState  []byte             `json:"before_state"`
	AfterState   []byte             `json:"after_state"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type Transaction struct {
	ID                 string             `json:"id"`
	Type               string             `json:"type"`
	SenderID           int64              `json:"sender_id"`
	ReceiverID         int64              `json:"receiver_id"`
	SenderName         string             `json:"sender_name"`
	SenderExternalID   string             `json:"sender_external_id"`
	ReceiverName       string             `json:"receiver_name"`
	ReceiverExternalID string             `json:"receiver_external_id"`
	Amount             pgtype.Numeric     `json:"amount"`
	BatchID            *string            `json:"batch_id"`
	Metadata           []byte             `json:"metadata"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
}
