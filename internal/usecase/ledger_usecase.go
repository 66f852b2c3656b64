package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
)

// ErrInconsistentLedger is returned when balances do not match the recorded system credits.
var ErrInconsistentLedger = domain.NewError(domain.KindIntegrity, "LEDGER_INCONSISTENT",
	"ledger is inconsistent: balances do not match recorded credits")

// ConsistencyReport compares the balance sum with what the records imply.
type ConsistencyReport struct {
	Totals     LedgerTotals
	Expected   decimal.Decimal
	Difference decimal.Decimal
	Consistent bool
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency verifies the conservation law: transfers never change the
// balance sum, so it must equal top-ups plus net adjustments.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return nil, err
	}

	expected := totals.TopUps.Add(totals.CreditAdjustments).Sub(totals.DebitAdjustments)
	report := &ConsistencyReport{
		Totals:     totals,
		Expected:   expected,
		Difference: totals.Balances.Sub(expected),
		Consistent: totals.Balances.Equal(expected),
	}

	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}
