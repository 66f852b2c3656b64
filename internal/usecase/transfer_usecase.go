package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

// TransferUseCase moves funds between wallets.
type TransferUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
	pinHasher       SecretHasher
	retrier         Retrier
	notifier        Notifier
	metrics         *metrics.Metrics
	maxRecipients   int
}

// NewTransferUseCase creates a new TransferUseCase.
// retrier, notifier and metrics may be nil.
func NewTransferUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	pinHasher SecretHasher,
	retrier Retrier,
	notifier Notifier,
	metrics *metrics.Metrics,
) *TransferUseCase {
	return &TransferUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		pinHasher:       pinHasher,
		retrier:         retrier,
		notifier:        notifier,
		metrics:         metrics,
		maxRecipients:   DefaultMaxGroupRecipients,
	}
}

// WithMaxRecipients overrides the group transfer size limit.
func (uc *TransferUseCase) WithMaxRecipients(n int) *TransferUseCase {
	if n > 0 {
		uc.maxRecipients = n
	}
	return uc
}

// TransferInput represents input for a single transfer.
type TransferInput struct {
	ReceiverExternalID string
	Pin                string
	Note               string
	Amount             decimal.Decimal
	SenderID           int64
}

// Recipient is one leg of a group transfer.
type Recipient struct {
	ExternalID string
	Amount     decimal.Decimal
}

// GroupTransferInput represents input for a group transfer.
type GroupTransferInput struct {
	Pin        string
	Note       string
	Recipients []Recipient
	SenderID   int64
}

// TransferResult is the outcome of a committed transfer.
type TransferResult struct {
	Transaction   *domain.Transaction
	SenderBalance decimal.Decimal
}

// GroupTransferResult is the outcome of a committed group transfer.
type GroupTransferResult struct {
	BatchID       string
	Transactions  []*domain.Transaction
	SenderBalance decimal.Decimal
	Total         decimal.Decimal
}

// Transfer debits the sender and credits one receiver.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	start := time.Now()

	result, err := uc.transfer(ctx, input)
	observe(uc.metrics, "transfer", start, input.Amount, err)

	return result, err
}

func (uc *TransferUseCase) transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	legs := []Recipient{{ExternalID: input.ReceiverExternalID, Amount: input.Amount}}

	records, balance, err := uc.execute(ctx, input.SenderID, input.Pin, input.Note, legs, nil)
	if err != nil {
		return nil, err
	}

	return &TransferResult{Transaction: records[0], SenderBalance: balance}, nil
}

// GroupTransfer debits the sender once by the total and credits every recipient.
// Either every leg commits or none does.
func (uc *TransferUseCase) GroupTransfer(ctx context.Context, input GroupTransferInput) (*GroupTransferResult, error) {
	start := time.Now()

	result, err := uc.groupTransfer(ctx, input)

	total := decimal.Zero
	for _, r := range input.Recipients {
		total = total.Add(r.Amount)
	}
	observe(uc.metrics, "group_transfer", start, total, err)

	return result, err
}

func (uc *TransferUseCase) groupTransfer(ctx context.Context, input GroupTransferInput) (*GroupTransferResult, error) {
	if len(input.Recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}
	if len(input.Recipients) > uc.maxRecipients {
		return nil, fmt.Errorf("%w: limit is %d", domain.ErrTooManyRecipients, uc.maxRecipients)
	}

	total := decimal.Zero
	for _, r := range input.Recipients {
		if err := domain.ValidateAmount(r.Amount); err != nil {
			return nil, fmt.Errorf("recipient %s: %w", domain.NormalizeExternalID(r.ExternalID), err)
		}
		total = total.Add(r.Amount)
	}

	batchID := uc.idGen.Generate()

	records, balance, err := uc.execute(ctx, input.SenderID, input.Pin, input.Note, input.Recipients, &batchID)
	if err != nil {
		return nil, err
	}

	return &GroupTransferResult{
		BatchID:       batchID,
		Transactions:  records,
		SenderBalance: balance,
		Total:         total,
	}, nil
}

// execute runs the shared transfer path. Amounts are already validated.
func (uc *TransferUseCase) execute(
	ctx context.Context,
	senderID int64,
	pin, note string,
	legs []Recipient,
	batchID *string,
) ([]*domain.Transaction, decimal.Decimal, error) {
	if err := domain.ValidatePinPresent(pin); err != nil {
		return nil, decimal.Zero, err
	}

	note = strings.TrimSpace(note)
	if err := domain.ValidateNote(note); err != nil {
		return nil, decimal.Zero, err
	}

	normalized := make([]Recipient, len(legs))
	total := decimal.Zero
	for i, leg := range legs {
		id := domain.NormalizeExternalID(leg.ExternalID)
		if id == "" {
			return nil, decimal.Zero, domain.ErrInvalidExternalID
		}
		normalized[i] = Recipient{ExternalID: id, Amount: leg.Amount}
		total = total.Add(leg.Amount)
	}

	sender, err := uc.accountRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !sender.Active {
		return nil, decimal.Zero, domain.ErrAccountInactive
	}

	for _, leg := range normalized {
		if leg.ExternalID == sender.ExternalID {
			return nil, decimal.Zero, domain.ErrSelfTransfer
		}
	}

	// Verified before the atomic unit: no row locks are held while hashing.
	if err := verifyPin(uc.pinHasher, sender, pin); err != nil {
		return nil, decimal.Zero, err
	}

	lookup := uniqueExternalIDs(sender.ExternalID, normalized)

	var (
		records       []*domain.Transaction
		senderBalance decimal.Decimal
	)

	err = runAtomic(ctx, uc.txManager, uc.retrier, func(txCtx context.Context, tx Transaction) error {
		records = make([]*domain.Transaction, 0, len(normalized))

		// One batch lookup locks sender and receivers together in ID order.
		accounts, err := uc.accountRepo.GetByExternalIDsForUpdate(txCtx, tx, lookup)
		if err != nil {
			return err
		}

		byExternalID := make(map[string]*domain.Account, len(accounts))
		for _, acc := range accounts {
			byExternalID[acc.ExternalID] = acc
		}

		locked := byExternalID[sender.ExternalID]
		if locked == nil || locked.ID != sender.ID {
			return domain.ErrAccountNotFound
		}

		if missing := missingReceivers(normalized, byExternalID); len(missing) > 0 {
			return domain.NewReceiversNotFound(missing)
		}

		for _, leg := range normalized {
			if !byExternalID[leg.ExternalID].Active {
				return fmt.Errorf("%w: %s", domain.ErrAccountInactive, leg.ExternalID)
			}
		}

		// The total is checked against the balance read under lock, before any leg is applied.
		if err := locked.ValidateDebit(total); err != nil {
			return err
		}

		now := time.Now().UTC()
		senderBalance = locked.ApplyDebit(total)
		if err := uc.accountRepo.UpdateBalance(txCtx, tx, locked.ID, senderBalance, now); err != nil {
			return err
		}

		balances := make(map[int64]decimal.Decimal, len(normalized))
		for _, leg := range normalized {
			receiver := byExternalID[leg.ExternalID]

			current, ok := balances[receiver.ID]
			if !ok {
				current = receiver.Balance
			}
			current = current.Add(leg.Amount)
			balances[receiver.ID] = current

			if err := uc.accountRepo.UpdateBalance(txCtx, tx, receiver.ID, current, now); err != nil {
				return err
			}

			record := &domain.Transaction{
				ID:         uc.idGen.Generate(),
				SenderID:   locked.ID,
				ReceiverID: receiver.ID,
				Sender:     locked.Snapshot(),
				Receiver:   receiver.Snapshot(),
				Amount:     leg.Amount,
				Type:       domain.TypeTransfer,
				Metadata:   noteMetadata(note),
				BatchID:    batchID,
				CreatedAt:  now,
			}
			if err := record.Validate(); err != nil {
				return err
			}

			if err := uc.transactionRepo.Create(txCtx, tx, record); err != nil {
				return err
			}
			records = append(records, record)
		}

		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	notify(ctx, uc.notifier, records)

	return records, senderBalance, nil
}

// uniqueExternalIDs returns the sender followed by each distinct receiver.
func uniqueExternalIDs(senderExternalID string, legs []Recipient) []string {
	seen := map[string]bool{senderExternalID: true}
	ids := []string{senderExternalID}

	for _, leg := range legs {
		if !seen[leg.ExternalID] {
			seen[leg.ExternalID] = true
			ids = append(ids, leg.ExternalID)
		}
	}

	return ids
}

// missingReceivers reports every unresolved receiver once, in input order.
func missingReceivers(legs []Recipient, found map[string]*domain.Account) []string {
	var missing []string
	reported := make(map[string]bool)

	for _, leg := range legs {
		if found[leg.ExternalID] == nil && !reported[leg.ExternalID] {
			reported[leg.ExternalID] = true
			missing = append(missing, leg.ExternalID)
		}
	}

	return missing
}
