package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/postgres/generated"
	"github.com/iho/campuswallet/internal/usecase"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepositoryWithDB(pool)
}

func newTransactionRepositoryWithDB(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Create appends a ledger record inside tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	var metadata []byte
	if len(record.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	return txQueries(tx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:                 record.ID,
		Type:               string(record.Type),
		SenderID:           record.SenderID,
		ReceiverID:         record.ReceiverID,
		SenderName:         record.Sender.Name,
		SenderExternalID:   record.Sender.ExternalID,
		ReceiverName:       record.Receiver.Name,
		ReceiverExternalID: record.Receiver.ExternalID,
		Amount:             decimalToNumeric(record.Amount),
		BatchID:            record.BatchID,
		Metadata:           metadata,
		CreatedAt:          timeToPgTimestamptz(record.CreatedAt),
	})
}

// GetByID retrieves a ledger record.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row)
}

// List returns one page of an account's records, newest first, and the
// total number of records matching the filter.
func (r *TransactionRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, int64, error) {
	params := listParams(filter)

	total, err := r.queries.CountTransactions(ctx, generated.CountTransactionsParams{
		AccountID: params.AccountID,
		Direction: params.Direction,
		FromTime:  params.FromTime,
		ToTime:    params.ToTime,
		Search:    params.Search,
	})
	if err != nil {
		return nil, 0, err
	}

	if total == 0 {
		return []*domain.Transaction{}, 0, nil
	}

	records, err := r.list(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListAll returns the newest records matching the filter, at most filter.Limit
// of them (all when the limit is zero). The offset is ignored.
func (r *TransactionRepository) ListAll(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, error) {
	params := listParams(filter)
	if filter.Limit <= 0 || filter.Limit > math.MaxInt32 {
		params.RowLimit = math.MaxInt32
	}
	params.RowOffset = 0

	return r.list(ctx, params)
}

func (r *TransactionRepository) list(ctx context.Context, params generated.ListTransactionsParams) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, params)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		record, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func listParams(filter domain.HistoryFilter) generated.ListTransactionsParams {
	direction := filter.Direction
	if direction == "" {
		direction = domain.DirectionAll
	}

	return generated.ListTransactionsParams{
		AccountID: filter.AccountID,
		Direction: string(direction),
		FromTime:  optionalTimestamptz(filter.From),
		ToTime:    optionalTimestamptz(filter.To),
		Search:    likeEscaper.Replace(strings.TrimSpace(filter.Search)),
		RowLimit:  int32(filter.Limit),
		RowOffset: int32(filter.Offset),
	}
}

func rowToTransaction(row generated.Transaction) (*domain.Transaction, error) {
	record := &domain.Transaction{
		ID:         row.ID,
		Type:       domain.TransactionType(row.Type),
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Sender: domain.PartySnapshot{
			Name:       row.SenderName,
			ExternalID: row.SenderExternalID,
		},
		Receiver: domain.PartySnapshot{
			Name:       row.ReceiverName,
			ExternalID: row.ReceiverExternalID,
		},
		Amount:    numericToDecimal(row.Amount),
		BatchID:   row.BatchID,
		CreatedAt: row.CreatedAt.Time,
	}

	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", row.ID, err)
		}
	}

	return record, nil
}
