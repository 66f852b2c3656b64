package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/campuswallet/internal/infrastructure/postgres/generated"
	"github.com/iho/campuswallet/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepositoryWithDB(pool)
}

func newLedgerRepositoryWithDB(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// Totals sums balances and system credits in a single statement so both
// sides come from the same snapshot.
func (r *LedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	row, err := r.queries.GetLedgerTotals(ctx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	return usecase.LedgerTotals{
		Balances:          numericToDecimal(row.TotalBalance),
		TopUps:            numericToDecimal(row.TotalTopups),
		CreditAdjustments: numericToDecimal(row.TotalCreditAdjustments),
		DebitAdjustments:  numericToDecimal(row.TotalDebitAdjustments),
	}, nil
}
