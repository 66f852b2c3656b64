package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
)

// AccountRepository defines data access for accounts.
// The ForUpdate variants lock rows inside tx in ascending ID order.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	GetByExternalIDsForUpdate(ctx context.Context, tx Transaction, externalIDs []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id int64, balance decimal.Decimal, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// TransactionRepository defines data access for ledger records.
// Records are append-only: there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, record *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, int64, error)
	// ListAll ignores the offset and treats a zero limit as unbounded.
	ListAll(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, error)
}

// LedgerTotals are the sums the conservation check compares.
type LedgerTotals struct {
	Balances          decimal.Decimal
	TopUps            decimal.Decimal
	CreditAdjustments decimal.Decimal
	DebitAdjustments  decimal.Decimal
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context) (LedgerTotals, error)
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an atomic unit when the store reports a transient conflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// SecretHasher hashes and verifies credentials.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}

// Notifier hands completion events to connected recipients.
// Implementations must not block and must not report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, events []domain.TransactionEvent)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the key can be reused after a failed request.
	Release(ctx context.Context, key string) error
}
