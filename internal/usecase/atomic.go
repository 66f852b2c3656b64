package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

// runAtomic executes fn inside one database transaction and commits it.
// The whole unit is re-run by the retrier on transient store conflicts, so fn
// must reset any state it collects. Caller cancellation is detached: once the
// unit starts it runs to commit or abort under its own timeout.
func runAtomic(
	ctx context.Context,
	txManager TransactionManager,
	retrier Retrier,
	fn func(txCtx context.Context, tx Transaction) error,
) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTransactionTimeout)
	defer cancel()

	attempt := func() error {
		tx, err := txManager.Begin(txCtx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}

	if retrier == nil {
		return attempt()
	}
	return retrier.Retry(txCtx, attempt)
}

// verifyPin checks the acting account's transaction authorization code.
func verifyPin(hasher SecretHasher, account *domain.Account, pin string) error {
	if !account.HasPin() {
		return domain.ErrPinNotConfigured
	}

	ok, err := hasher.Verify(pin, *account.PinHash)
	if err != nil {
		return fmt.Errorf("verify authorization code: %w", err)
	}
	if !ok {
		return domain.ErrInvalidPin
	}
	return nil
}

func observe(m *metrics.Metrics, operation string, start time.Time, amount decimal.Decimal, err error) {
	if m == nil {
		return
	}
	m.ObserveLedgerOperation(operation, string(domain.KindOf(err)), err == nil, time.Since(start), amount.InexactFloat64())
}

func notify(ctx context.Context, n Notifier, records []*domain.Transaction) {
	if n == nil || len(records) == 0 {
		return
	}
	n.Notify(ctx, domain.EventsFor(records))
}

func noteMetadata(note string) map[string]any {
	if note == "" {
		return nil
	}
	return map[string]any{"note": note}
}
