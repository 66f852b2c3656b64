package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultMaxGroupRecipients caps the size of one group transfer.
	DefaultMaxGroupRecipients = 100

	// MaxExportRows is the default bound on a single statement or CSV export;
	// newer records win when the bound cuts the range.
	MaxExportRows = 10000
)
