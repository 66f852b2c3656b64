package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*)
FROM transactions
WHERE (sender_id = $1 OR receiver_id = $1)
  AND ($2::TEXT = 'all'
       OR ($2 = 'sent' AND sender_id = $1 AND receiver_id <> $1)
       OR ($2 = 'received' AND receiver_id = $1 AND sender_id <> $1)
       OR ($2 = 'topup' AND sender_id = receiver_id))
  AND ($3::TIMESTAMPTZ IS NULL OR created_at >= $3)
  AND ($4::TIMESTAMPTZ IS NULL OR created_at < $4)
  AND ($5::TEXT = ''
       OR (CASE WHEN receiver_id = $1 THEN sender_name || ' ' || sender_external_id
                ELSE receiver_name || ' ' || receiver_external_id END) ILIKE '%' || $5 || '%')
`

type CountTransactionsParams struct {
	AccountID int64              `json:"account_id"`
	Direction string             `json:"direction"`
	FromTime  pgtype.Timestamptz `json:"from_time"`
	ToTime    pgtype.Timestamptz `json:"to_time"`
	Search    string             `json:"search"`
}

func (q *Queries) CountTransactions(ctx context.Context, arg CountTransactionsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countTransactions,
		arg.AccountID,
		arg.Direction,
		arg.FromTime,
		arg.ToTime,
		arg.Search,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, type, sender_id, receiver_id, sender_name, sender_external_id, receiver_name, receiver_external_id, amount, batch_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type CreateTransactionParams struct {
	ID                 string             `json:"id"`
	Type               string             `json:"type"`
	SenderID           int64              `json:"sender_id"`
	ReceiverID         int64              `json:"receiver_id"`
	SenderName         string             `json:"sender_name"`
	SenderExternalID   string             `json:"sender_external_id"`
	ReceiverName       string             `json:"receiver_name"`
	ReceiverExternalID string             `json:"receiver_external_id"`
	Amount             pgtype.Numeric     `json:"amount"`
	BatchID            *string            `json:"batch_id"`
	Metadata           []byte             `json:"metadata"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.Type,
		arg.SenderID,
		arg.ReceiverID,
		arg.SenderName,
		arg.SenderExternalID,
		arg.ReceiverName,
		arg.ReceiverExternalID,
		arg.Amount,
		arg.BatchID,
		arg.Metadata,
		arg.CreatedAt,
	)
	return err
}

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT id, type, sender_id, receiver_id, sender_name, sender_external_id, receiver_name, receiver_external_id, amount, batch_id, metadata, created_at
FROM transactions WHERE id = $1
`

func (q *Queries) GetTransactionByID(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransactionByID, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.SenderID,
		&i.ReceiverID,
		&i.SenderName,
		&i.SenderExternalID,
		&i.ReceiverName,
		&i.ReceiverExternalID,
		&i.Amount,
		&i.BatchID,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, type, sender_id, receiver_id, sender_name, sender_external_id, receiver_name, receiver_external_id, amount, batch_id, metadata, created_at
FROM transactions
WHERE (sender_id = $1 OR receiver_id = $1)
  AND ($2::TEXT = 'all'
       OR ($2 = 'sent' AND sender_id = $1 AND receiver_id <> $1)
       OR ($2 = 'received' AND receiver_id = $1 AND sender_id <> $1)
       OR ($2 = 'topup' AND sender_id = receiver_id))
  AND ($3::TIMESTAMPTZ IS NULL OR created_at >= $3)
  AND ($4::TIMESTAMPTZ IS NULL OR created_at < $4)
  AND ($5::TEXT = ''
       OR (CASE WHEN receiver_id = $1 THEN sender_name || ' ' || sender_external_id
                ELSE receiver_name || ' ' || receiver_external_id END) ILIKE '%' || $5 || '%')
ORDER BY created_at DESC, id DESC
LIMIT $6 OFFSET $7
`

type ListTransactionsParams struct {
	AccountID int64              `json:"account_id"`
	Direction string             `json:"direction"`
	FromTime  pgtype.Timestamptz `json:"from_time"`
	ToTime    pgtype.Timestamptz `json:"to_time"`
	Search    string             `json:"search"`
	RowLimit  int32              `json:"row_limit"`
	RowOffset int32              `json:"row_offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions,
		arg.AccountID,
		arg.Direction,
		arg.FromTime,
		arg.ToTime,
		arg.Search,
		arg.RowLimit,
		arg.RowOffset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Type,
			&i.SenderID,
			&i.ReceiverID,
			&i.SenderName,
			&i.SenderExternalID,
			&i.ReceiverName,
			&i.ReceiverExternalID,
			&i.Amount,
			&i.BatchID,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
