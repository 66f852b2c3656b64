package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/campuswallet/internal/adapter/repository/postgres"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/auth"
	infrapg "github.com/iho/campuswallet/internal/infrastructure/postgres"
	"github.com/iho/campuswallet/internal/usecase"
)

// The integration suite needs a disposable database in TEST_DATABASE_URL.
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, infrapg.RunMigrations(dbURL, "../../../../migrations"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE audit_logs, transactions, accounts RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	return pool
}

type wallet struct {
	accounts *postgres.AccountRepository
	transfer *usecase.TransferUseCase
	topUp    *usecase.TopUpUseCase
	ledger   *usecase.LedgerUseCase
	ids      map[string]int64
}

func newWallet(t *testing.T, pool *pgxpool.Pool) *wallet {
	t.Helper()

	accountRepo := postgres.NewAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	txManager := postgres.NewTxManager(pool, 2*time.Second)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier(zerolog.Nop(), 5)
	pinHasher := auth.NewArgon2Hasher(1, 1024)

	provision := usecase.NewAccountUseCase(txManager, accountRepo, nil, auth.NewBcryptHasher(4), pinHasher, nil, nil)
	accounts, err := provision.Provision(context.Background(), 0, []usecase.ProvisionInput{
		{ExternalID: "core1", Name: "Treasury", Role: string(domain.RoleCore), Pin: "9999"},
		{ExternalID: "s001", Name: "Ann", Role: string(domain.RoleMember), Pin: "1234"},
		{ExternalID: "s002", Name: "Ben", Role: string(domain.RoleMember), Pin: "1234"},
		{ExternalID: "s003", Name: "Cat", Role: string(domain.RoleMember)},
	})
	require.NoError(t, err)

	ids := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		ids[a.ExternalID] = a.ID
	}

	return &wallet{
		accounts: accountRepo,
		transfer: usecase.NewTransferUseCase(txManager, accountRepo, transactionRepo, idGen, pinHasher, retrier, nil, nil),
		topUp: usecase.NewTopUpUseCase(txManager, accountRepo, transactionRepo, postgres.NewAuditRepository(),
			idGen, pinHasher, retrier, nil, nil),
		ledger: usecase.NewLedgerUseCase(postgres.NewLedgerRepository(pool)),
		ids:    ids,
	}
}

func (w *wallet) fund(t *testing.T, externalID string, amount int64) {
	t.Helper()

	_, err := w.topUp.TopUp(context.Background(), usecase.TopUpInput{
		TargetExternalID: externalID,
		Pin:              "9999",
		Amount:           decimal.NewFromInt(amount),
		ActorID:          w.ids["CORE1"],
	})
	require.NoError(t, err)
}

func (w *wallet) balance(t *testing.T, externalID string) decimal.Decimal {
	t.Helper()

	account, err := w.accounts.GetByID(context.Background(), w.ids[externalID])
	require.NoError(t, err)
	return account.Balance
}

func TestIntegrationConcurrentTransfersNoOverdraft(t *testing.T) {
	w := newWallet(t, newIntegrationPool(t))
	w.fund(t, "S001", 100)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		declined  atomic.Int32
	)

	wg.Add(attempts)
	for range attempts {
		go func() {
			defer wg.Done()

			_, err := w.transfer.Transfer(context.Background(), usecase.TransferInput{
				SenderID:           w.ids["S001"],
				ReceiverExternalID: "s002",
				Pin:                "1234",
				Amount:             decimal.NewFromInt(10),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				declined.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(10), declined.Load())
	assert.True(t, w.balance(t, "S001").IsZero())
	assert.True(t, w.balance(t, "S002").Equal(decimal.NewFromInt(100)))

	report, err := w.ledger.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestIntegrationOpposingTransfersDoNotDeadlock(t *testing.T) {
	w := newWallet(t, newIntegrationPool(t))
	w.fund(t, "S001", 1000)
	w.fund(t, "S002", 1000)

	const pairs = 25
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	send := func(from, to string) {
		defer wg.Done()
		_, err := w.transfer.Transfer(context.Background(), usecase.TransferInput{
			SenderID:           w.ids[from],
			ReceiverExternalID: to,
			Pin:                "1234",
			Amount:             decimal.NewFromInt(10),
		})
		if err != nil {
			failed.Add(1)
		}
	}

	wg.Add(pairs * 2)
	for range pairs {
		go send("S001", "S002")
		go send("S002", "S001")
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.True(t, w.balance(t, "S001").Equal(decimal.NewFromInt(1000)))
	assert.True(t, w.balance(t, "S002").Equal(decimal.NewFromInt(1000)))
}

func TestIntegrationGroupTransferIsAllOrNothing(t *testing.T) {
	w := newWallet(t, newIntegrationPool(t))
	w.fund(t, "S001", 50)

	_, err := w.transfer.GroupTransfer(context.Background(), usecase.GroupTransferInput{
		SenderID: w.ids["S001"],
		Pin:      "1234",
		Recipients: []usecase.Recipient{
			{ExternalID: "s002", Amount: decimal.NewFromInt(20)},
			{ExternalID: "ghost", Amount: decimal.NewFromInt(20)},
		},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"GHOST"}, domain.MissingOf(err))
	assert.True(t, w.balance(t, "S001").Equal(decimal.NewFromInt(50)))

	result, err := w.transfer.GroupTransfer(context.Background(), usecase.GroupTransferInput{
		SenderID: w.ids["S001"],
		Pin:      "1234",
		Recipients: []usecase.Recipient{
			{ExternalID: "s002", Amount: decimal.NewFromInt(20)},
			{ExternalID: "s003", Amount: decimal.NewFromInt(30)},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 2)
	assert.True(t, result.SenderBalance.IsZero())
	assert.True(t, w.balance(t, "S003").Equal(decimal.NewFromInt(30)))
}
