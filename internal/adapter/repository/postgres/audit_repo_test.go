package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/campuswallet/internal/domain"
)

func TestAuditRepository_CreateTx(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAuditRepository()
	tx := beginTx(t, mock)

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(pgxmock.AnyArg(), int64(1), "ledger.topup", "account", "B2", pgxmock.AnyArg(),
			[]byte(nil), []byte(`{"amount":"10"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := &domain.AuditLog{
		ActorID:      1,
		Action:       domain.AuditActionTopUp,
		ResourceType: "account",
		ResourceID:   "B2",
		RequestID:    "req-1",
		After:        domain.JSON{"amount": "10"},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, log))

	_, err := uuid.Parse(log.ID)
	assert.NoError(t, err, "an id is assigned when missing")
	assertExpectations(t, mock)
}

func TestAuditRepository_CreateTxRejectsMalformedID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAuditRepository()
	tx := beginTx(t, mock)

	err := repo.CreateTx(context.Background(), tx, &domain.AuditLog{ID: "not-a-uuid"})
	assert.Error(t, err)
}
