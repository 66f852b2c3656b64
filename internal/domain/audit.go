package domain

import (
	"encoding/json"
	"time"
)

// AuditLog records a privileged action for later review
type AuditLog struct {
	CreatedAt    time.Time
	Before       JSON
	After        JSON
	ID           string
	Action       AuditAction
	ResourceType string // account, transaction
	ResourceID   string
	RequestID    string
	ActorID      int64
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionAccountProvision AuditAction = "account.provision"
	AuditActionTopUp            AuditAction = "ledger.topup"
	AuditActionAdjustment       AuditAction = "ledger.adjustment"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}
