package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/iho/campuswallet/internal/domain"
)

// HistoryUseCase serves read-only queries over ledger records.
type HistoryUseCase struct {
	transactionRepo TransactionRepository
	maxPageSize     int
	maxExportRows   int
	location        *time.Location
}

// NewHistoryUseCase creates a new HistoryUseCase.
// loc sets the calendar used by statements; nil means UTC.
func NewHistoryUseCase(transactionRepo TransactionRepository, maxPageSize int, loc *time.Location) *HistoryUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryUseCase{
		transactionRepo: transactionRepo,
		maxPageSize:     maxPageSize,
		maxExportRows:   MaxExportRows,
		location:        loc,
	}
}

// WithMaxExportRows overrides how many records one statement or export reads.
func (uc *HistoryUseCase) WithMaxExportRows(n int) *HistoryUseCase {
	if n > 0 {
		uc.maxExportRows = n
	}
	return uc
}

// HistoryPage is one page of records, newest first.
type HistoryPage struct {
	Items  []*domain.Transaction
	Total  int64
	Limit  int
	Offset int
}

// CSVHeader is the first row of every export.
var CSVHeader = []string{"id", "created_at", "type", "direction", "counterparty_name", "counterparty_id", "amount", "note"}

// List returns a page of the account's records.
func (uc *HistoryUseCase) List(ctx context.Context, filter domain.HistoryFilter) (*HistoryPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset, uc.maxPageSize)

	items, total, err := uc.transactionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Transaction{}
	}

	return &HistoryPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Get returns one record if accountID is a party to it.
func (uc *HistoryUseCase) Get(ctx context.Context, accountID int64, id string) (*domain.Transaction, error) {
	record, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.SenderID != accountID && record.ReceiverID != accountID {
		return nil, domain.ErrTransactionNotFound
	}
	return record, nil
}

// Statement aggregates the filtered records by calendar day.
func (uc *HistoryUseCase) Statement(ctx context.Context, filter domain.HistoryFilter) (*domain.Statement, error) {
	records, err := uc.all(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.BuildStatement(filter.AccountID, records, uc.location), nil
}

// ExportCSV writes the filtered records as CSV and returns the number of data rows.
func (uc *HistoryUseCase) ExportCSV(ctx context.Context, filter domain.HistoryFilter, w io.Writer) (int, error) {
	records, err := uc.all(ctx, filter)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range records {
		counterparty := rec.Counterparty(filter.AccountID)
		row := []string{
			rec.ID,
			rec.CreatedAt.In(uc.location).Format(time.RFC3339),
			string(rec.Type),
			string(rec.DirectionFor(filter.AccountID)),
			counterparty.Name,
			counterparty.ExternalID,
			rec.Amount.StringFixed(domain.AmountScale),
			rec.Note(),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	return len(records), nil
}

func (uc *HistoryUseCase) all(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.Limit = uc.maxExportRows
	filter.Offset = 0

	return uc.transactionRepo.ListAll(ctx, filter)
}
