package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getLedgerTotals = `-- name: GetLedgerTotals :one
SELECT
    (SELECT COALESCE(SUM(balance), 0) FROM accounts)::NUMERIC AS total_balance,
    COALESCE(SUM(amount) FILTER (WHERE type = 'topup'), 0)::NUMERIC AS total_topups,
    COALESCE(SUM(amount) FILTER (WHERE type = 'adjustment' AND metadata->>'direction' = 'credit'), 0)::NUMERIC AS total_credit_adjustments,
    COALESCE(SUM(amount) FILTER (WHERE type = 'adjustment' AND metadata->>'direction' = 'debit'), 0)::NUMERIC AS total_debit_adjustments
FROM transactions
`

type GetLedgerTotalsRow struct {
	TotalBalance           pgtype.Numeric `json:"total_balance"`
	TotalTopups            pgtype.Numeric `json:"total_topups"`
	TotalCreditAdjustments pgtype.Numeric `json:"total_credit_adjustments"`
	TotalDebitAdjustments  pgtype.Numeric `json:"total_debit_adjustments"`
}

func (q *Queries) GetLedgerTotals(ctx context.Context) (GetLedgerTotalsRow, error) {
	row := q.db.QueryRow(ctx, getLedgerTotals)
	var i GetLedgerTotalsRow
	err := row.Scan(
		&i.TotalBalance,
		&i.TotalTopups,
		&i.TotalCreditAdjustments,
		&i.TotalDebitAdjustments,
	)
	return i, err
}
