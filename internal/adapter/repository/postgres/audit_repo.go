package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/postgres/generated"
	"github.com/iho/campuswallet/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// CreateTx inserts an audit log entry in the same transaction as the change it describes
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	id, err := uuid.Parse(log.ID)
	if err != nil {
		return fmt.Errorf("audit log id: %w", err)
	}

	before, err := marshalState(log.Before)
	if err != nil {
		return err
	}
	after, err := marshalState(log.After)
	if err != nil {
		return err
	}

	var requestID *string
	if log.RequestID != "" {
		requestID = &log.RequestID
	}

	return txQueries(tx).CreateAuditLog(ctx, generated.CreateAuditLogParams{
		ID:           pgtype.UUID{Bytes: id, Valid: true},
		ActorID:      log.ActorID,
		Action:       string(log.Action),
		ResourceType: log.ResourceType,
		ResourceID:   log.ResourceID,
		RequestID:    requestID,
		BeforeState:  before,
		AfterState:   after,
		CreatedAt:    timeToPgTimestamptz(log.CreatedAt),
	})
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal audit state: %w", err)
	}
	return data, nil
}
