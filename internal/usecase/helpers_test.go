package usecase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
	"github.com/iho/campuswallet/internal/usecase/mocks"
)

const testPin = "1234"

type ledgerFixture struct {
	store     *mocks.Store
	hasher    *mocks.PlainHasher
	notifier  *mocks.RecordingNotifier
	idGen     *mocks.IDGenerator
	transfers *usecase.TransferUseCase
	topups    *usecase.TopUpUseCase
	history   *usecase.HistoryUseCase
	ledger    *usecase.LedgerUseCase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	store := mocks.NewStore()
	hasher := mocks.NewPlainHasher()
	notifier := mocks.NewRecordingNotifier()
	idGen := mocks.NewIDGenerator()

	return &ledgerFixture{
		store:    store,
		hasher:   hasher,
		notifier: notifier,
		idGen:    idGen,
		transfers: usecase.NewTransferUseCase(
			store.TxManager(), store.Accounts(), store.Transactions(),
			idGen, hasher, nil, notifier, nil,
		),
		topups: usecase.NewTopUpUseCase(
			store.TxManager(), store.Accounts(), store.Transactions(), store.Audit(),
			idGen, hasher, nil, notifier, nil,
		),
		history: usecase.NewHistoryUseCase(store.Transactions(), 0, time.UTC),
		ledger:  usecase.NewLedgerUseCase(store.Ledger()),
	}
}

// seed creates an active member with testPin configured.
func (f *ledgerFixture) seed(externalID, name string, balance int64) *domain.Account {
	return f.store.Seed(domain.Account{
		ExternalID: externalID,
		Name:       name,
		Role:       domain.RoleMember,
		Balance:    decimal.NewFromInt(balance),
		PinHash:    mocks.HashOf(testPin),
		Active:     true,
	})
}

func (f *ledgerFixture) seedRole(externalID, name string, role domain.Role, department *string) *domain.Account {
	return f.store.Seed(domain.Account{
		ExternalID: externalID,
		Name:       name,
		Role:       role,
		Department: department,
		Balance:    decimal.Zero,
		PinHash:    mocks.HashOf(testPin),
		Active:     true,
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}
