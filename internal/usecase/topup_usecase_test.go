package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
	"github.com/iho/campuswallet/internal/usecase/mocks"
)

func TestTopUpUseCase_TopUp(t *testing.T) {
	f := newLedgerFixture(t)
	core := f.seedRole("CORE1", "Core Team", domain.RoleCore, nil)
	bob := f.store.Seed(domain.Account{ExternalID: "B1", Name: "Bob", Role: domain.RoleMember, Balance: dec("5"), Active: true})

	before := f.store.TotalBalance()

	result, err := f.topups.TopUp(context.Background(), usecase.TopUpInput{
		ActorID:          core.ID,
		TargetExternalID: "b1",
		Amount:           dec("100"),
		Pin:              testPin,
		Note:             "event float",
		RequestID:        "req-1",
	})
	require.NoError(t, err)

	assert.True(t, result.Balance.Equal(dec("105")))
	assert.True(t, f.store.Balance(bob.ID).Equal(dec("105")))
	assert.True(t, f.store.TotalBalance().Sub(before).Equal(dec("100")), "top-ups raise the sum by their amount")

	records := f.store.Records()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, domain.TypeTopUp, rec.Type)
	assert.True(t, rec.IsSelfReferential())
	assert.Equal(t, bob.ID, rec.SenderID)
	assert.Equal(t, usecase.DefaultAuthority, rec.Sender)
	assert.Equal(t, domain.PartySnapshot{Name: "Bob", ExternalID: "B1"}, rec.Receiver)
	assert.Equal(t, "CORE1", rec.Metadata["issued_by"])
	assert.Equal(t, "event float", rec.Note())

	audits := f.store.AuditLogs()
	require.Len(t, audits, 1)
	assert.Equal(t, domain.AuditActionTopUp, audits[0].Action)
	assert.Equal(t, core.ID, audits[0].ActorID)
	assert.Equal(t, rec.ID, audits[0].ResourceID)
	assert.Equal(t, "req-1", audits[0].RequestID)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.TypeTopUp, events[0].Type)
	assert.Equal(t, "B1", events[0].RecipientExternalID)

	report, err := f.ledger.CheckConsistency(context.Background())
	require.Error(t, err, "seeded balance of 5 has no backing credit")
	assert.True(t, report.Difference.Equal(dec("5")))
}

func TestTopUpUseCase_TopUp_CustomAuthority(t *testing.T) {
	f := newLedgerFixture(t)
	f.topups.WithAuthority("Finance Office", "fin-office")
	core := f.seedRole("CORE1", "Core Team", domain.RoleCore, nil)
	f.seed("B1", "Bob", 0)

	result, err := f.topups.TopUp(context.Background(), usecase.TopUpInput{
		ActorID: core.ID, TargetExternalID: "B1", Amount: dec("10"), Pin: testPin,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PartySnapshot{Name: "Finance Office", ExternalID: "FIN-OFFICE"}, result.Transaction.Sender)
}

func TestTopUpUseCase_TopUp_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		amount  string
		pin     string
		wantErr error
	}{
		{name: "actor code mismatch", target: "B1", amount: "10", pin: "9999", wantErr: domain.ErrInvalidPin},
		{name: "missing code", target: "B1", amount: "10", pin: "", wantErr: domain.ErrPinRequired},
		{name: "unknown target", target: "NOPE", amount: "10", pin: testPin, wantErr: domain.ErrAccountNotFound},
		{name: "zero amount", target: "B1", amount: "0", pin: testPin, wantErr: domain.ErrInvalidAmount},
		{name: "too many decimals", target: "B1", amount: "1.005", pin: testPin, wantErr: domain.ErrAmountPrecision},
		{name: "empty target", target: "  ", amount: "10", pin: testPin, wantErr: domain.ErrInvalidExternalID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			core := f.seedRole("CORE1", "Core Team", domain.RoleCore, nil)
			bob := f.seed("B1", "Bob", 0)

			_, err := f.topups.TopUp(context.Background(), usecase.TopUpInput{
				ActorID:          core.ID,
				TargetExternalID: tt.target,
				Amount:           dec(tt.amount),
				Pin:              tt.pin,
			})

			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, f.store.Balance(bob.ID).IsZero())
			assert.Empty(t, f.store.Records())
			assert.Empty(t, f.store.AuditLogs())
		})
	}
}

func TestTopUpUseCase_TopUp_TargetCodeIsIrrelevant(t *testing.T) {
	f := newLedgerFixture(t)
	core := f.seedRole("CORE1", "Core Team", domain.RoleCore, nil)
	bob := f.store.Seed(domain.Account{ExternalID: "B1", Name: "Bob", Role: domain.RoleMember, Active: true})

	_, err := f.topups.TopUp(context.Background(), usecase.TopUpInput{
		ActorID: core.ID, TargetExternalID: "B1", Amount: dec("10"), Pin: testPin,
	})
	require.NoError(t, err)
	assert.True(t, f.store.Balance(bob.ID).Equal(dec("10")))
}

func TestTopUpUseCase_Adjust(t *testing.T) {
	tests := []struct {
		name          string
		newBalance    string
		wantAmount    string
		wantDirection string
	}{
		{name: "lowers balance", newBalance: "50", wantAmount: "30", wantDirection: domain.AdjustmentDebit},
		{name: "raises balance", newBalance: "100.25", wantAmount: "20.25", wantDirection: domain.AdjustmentCredit},
		{name: "clears balance", newBalance: "0", wantAmount: "80", wantDirection: domain.AdjustmentDebit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			admin := f.seedRole("ADM1", "Admin", domain.RoleAdmin, nil)
			bob := f.seed("B1", "Bob", 0)

			_, err := f.topups.TopUp(context.Background(), usecase.TopUpInput{
				ActorID: admin.ID, TargetExternalID: "B1", Amount: dec("80"), Pin: testPin,
			})
			require.NoError(t, err)

			result, err := f.topups.Adjust(context.Background(), usecase.AdjustInput{
				ActorID:          admin.ID,
				TargetExternalID: "B1",
				NewBalance:       decimal.NewNullDecimal(dec(tt.newBalance)),
				Reason:           "refund booth error",
				Pin:              testPin,
			})
			require.NoError(t, err)

			assert.True(t, f.store.Balance(bob.ID).Equal(dec(tt.newBalance)))
			assert.True(t, result.Balance.Equal(dec(tt.newBalance)))

			rec := result.Transaction
			assert.Equal(t, domain.TypeAdjustment, rec.Type)
			assert.True(t, rec.IsSelfReferential())
			assert.True(t, rec.Amount.Equal(dec(tt.wantAmount)))
			assert.Equal(t, tt.wantDirection, rec.Metadata[domain.MetaDirection])
			assert.Equal(t, "80", rec.Metadata["previous_balance"])
			assert.Equal(t, "ADM1", rec.Metadata["actor"])
			assert.Equal(t, "refund booth error", rec.Note())

			assert.Len(t, f.store.AuditLogs(), 2)

			report, err := f.ledger.CheckConsistency(context.Background())
			require.NoError(t, err)
			assert.True(t, report.Consistent)
		})
	}
}

func TestTopUpUseCase_Adjust_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		newBalance string
		reason     string
		wantErr    error
	}{
		{name: "no change", newBalance: "40", reason: "noop", wantErr: domain.ErrNoBalanceChange},
		{name: "negative", newBalance: "-1", reason: "oops", wantErr: domain.ErrNegativeBalance},
		{name: "missing reason", newBalance: "10", reason: "  ", wantErr: domain.ErrReasonRequired},
		{name: "sub-cent precision", newBalance: "10.001", reason: "oops", wantErr: domain.ErrAmountPrecision},
		{name: "missing new balance", newBalance: "", reason: "fix", wantErr: domain.ErrNewBalanceRequired},
		{name: "above maximum", newBalance: "1000000000000.01", reason: "oops", wantErr: domain.ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			admin := f.seedRole("ADM1", "Admin", domain.RoleAdmin, nil)
			bob := f.seed("B1", "Bob", 40)

			var newBalance decimal.NullDecimal
			if tt.newBalance != "" {
				newBalance = decimal.NewNullDecimal(dec(tt.newBalance))
			}

			_, err := f.topups.Adjust(context.Background(), usecase.AdjustInput{
				ActorID:          admin.ID,
				TargetExternalID: "B1",
				NewBalance:       newBalance,
				Reason:           tt.reason,
				Pin:              testPin,
			})

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.True(t, f.store.Balance(bob.ID).Equal(dec("40")))
			assert.Empty(t, f.store.Records())
		})
	}
}

func TestTopUpUseCase_InactiveActor(t *testing.T) {
	store := mocks.NewStore()
	actor := store.Seed(domain.Account{ExternalID: "CORE1", Name: "Core", Role: domain.RoleCore, PinHash: mocks.HashOf(testPin)})
	store.Seed(domain.Account{ExternalID: "B1", Name: "Bob", Role: domain.RoleMember, Active: true})

	uc := usecase.NewTopUpUseCase(store.TxManager(), store.Accounts(), store.Transactions(), nil,
		mocks.NewIDGenerator(), mocks.NewPlainHasher(), nil, nil, nil)

	_, err := uc.TopUp(context.Background(), usecase.TopUpInput{
		ActorID: actor.ID, TargetExternalID: "B1", Amount: dec("10"), Pin: testPin,
	})

	require.ErrorIs(t, err, domain.ErrAccountInactive)
	assert.Empty(t, store.Records())
}
