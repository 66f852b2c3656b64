package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (external_id, name, role, department, balance, password_hash, pin_hash, active, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id
`

type CreateAccountParams struct {
	ExternalID   string             `json:"external_id"`
	Name         string             `json:"name"`
	Role         string             `json:"role"`
	Department   *string            `json:"department"`
	Balance      pgtype.Numeric     `json:"balance"`
	PasswordHash *string            `json:"password_hash"`
	PinHash      *string            `json:"pin_hash"`
	Active       bool               `json:"active"`
	Version      int64              `json:"version"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (int64, error) {
	row := q.db.QueryRow(ctx, createAccount,
		arg.ExternalID,
		arg.Name,
		arg.Role,
		arg.Department,
		arg.Balance,
		arg.PasswordHash,
		arg.PinHash,
		arg.Active,
		arg.Version,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getAccountByExternalID = `-- name: GetAccountByExternalID :one
SELECT id, external_id, name, role, department, balance, password_hash, pin_hash, active, version, created_at, updated_at
FROM accounts WHERE external_id = $1
`

func (q *Queries) GetAccountByExternalID(ctx context.Context, externalID string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByExternalID, externalID)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.ExternalID,
		&i.Name,
		&i.Role,
		&i.Department,
		&i.Balance,
		&i.PasswordHash,
		&i.PinHash,
		&i.Active,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, external_id, name, role, department, balance, password_hash, pin_hash, active, version, created_at, updated_at
FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id int64) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.ExternalID,
		&i.Name,
		&i.Role,
		&i.Department,
		&i.Balance,
		&i.PasswordHash,
		&i.PinHash,
		&i.Active,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountsByExternalIDsForUpdate = `-- name: GetAccountsByExternalIDsForUpdate :many
SELECT id, external_id, name, role, department, balance, password_hash, pin_hash, active, version, created_at, updated_at
FROM accounts WHERE external_id = ANY($1::TEXT[])
ORDER BY id
FOR UPDATE
`

func (q *Queries) GetAccountsByExternalIDsForUpdate(ctx context.Context, dollar_1 []string) ([]Account, error) {
	rows, err := q.db.Query(ctx, getAccountsByExternalIDsForUpdate, dollar_1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.ExternalID,
			&i.Name,
			&i.Role,
			&i.Department,
			&i.Balance,
			&i.PasswordHash,
			&i.PinHash,
			&i.Active,
			&i.Version,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listAccounts = `-- name: ListAccounts :many
SELECT id, external_id, name, role, department, balance, password_hash, pin_hash, active, version, created_at, updated_at
FROM accounts
ORDER BY id
LIMIT $1 OFFSET $2
`

type ListAccountsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.ExternalID,
			&i.Name,
			&i.Role,
			&i.Department,
			&i.Balance,
			&i.PasswordHash,
			&i.PinHash,
			&i.Active,
			&i.Version,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateAccountBalance = `-- name: UpdateAccountBalance :execrows
UPDATE accounts SET balance = $2, version = version + 1, updated_at = $3
WHERE id = $1
`

type UpdateAccountBalanceParams struct {
	ID        int64              `json:"id"`
	Balance   pgtype.Numeric     `json:"balance"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateAccountBalance(ctx context.Context, arg UpdateAccountBalanceParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAccountBalance, arg.ID, arg.Balance, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
