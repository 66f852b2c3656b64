package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

// DefaultAuthority is the sender snapshot written on system credits.
var DefaultAuthority = domain.PartySnapshot{Name: "Campus Wallet", ExternalID: "SYSTEM"}

// TopUpUseCase handles privileged credits and administrative adjustments.
// Role checks happen in the PolicyGate before these methods run.
type TopUpUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	auditRepo       AuditRepository
	idGen           IDGenerator
	pinHasher       SecretHasher
	retrier         Retrier
	notifier        Notifier
	metrics         *metrics.Metrics
	authority       domain.PartySnapshot
}

// NewTopUpUseCase creates a new TopUpUseCase.
func NewTopUpUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	pinHasher SecretHasher,
	retrier Retrier,
	notifier Notifier,
	metrics *metrics.Metrics,
) *TopUpUseCase {
	return &TopUpUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		auditRepo:       auditRepo,
		idGen:           idGen,
		pinHasher:       pinHasher,
		retrier:         retrier,
		notifier:        notifier,
		metrics:         metrics,
		authority:       DefaultAuthority,
	}
}

// WithAuthority overrides the issuing authority label.
func (uc *TopUpUseCase) WithAuthority(name, externalID string) *TopUpUseCase {
	if name != "" {
		uc.authority.Name = name
	}
	if externalID != "" {
		uc.authority.ExternalID = domain.NormalizeExternalID(externalID)
	}
	return uc
}

// TopUpInput represents input for a top-up.
type TopUpInput struct {
	TargetExternalID string
	Pin              string
	Note             string
	RequestID        string
	Amount           decimal.Decimal
	ActorID          int64
}

// AdjustInput represents input for an administrative balance reset.
type AdjustInput struct {
	TargetExternalID string
	Reason           string
	Pin              string
	RequestID        string
	NewBalance       decimal.NullDecimal
	ActorID          int64
}

// CreditResult is the outcome of a committed top-up or adjustment.
type CreditResult struct {
	Transaction *domain.Transaction
	Balance     decimal.Decimal
}

// TopUp credits the target. The acting principal's code is verified, not the target's.
func (uc *TopUpUseCase) TopUp(ctx context.Context, input TopUpInput) (*CreditResult, error) {
	start := time.Now()

	result, err := uc.topUp(ctx, input)
	observe(uc.metrics, "topup", start, input.Amount, err)

	return result, err
}

func (uc *TopUpUseCase) topUp(ctx context.Context, input TopUpInput) (*CreditResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidatePinPresent(input.Pin); err != nil {
		return nil, err
	}

	note := strings.TrimSpace(input.Note)
	if err := domain.ValidateNote(note); err != nil {
		return nil, err
	}

	targetID := domain.NormalizeExternalID(input.TargetExternalID)
	if targetID == "" {
		return nil, domain.ErrInvalidExternalID
	}

	actor, err := uc.authorizeActor(ctx, input.ActorID, input.Pin)
	if err != nil {
		return nil, err
	}

	var result *CreditResult

	err = runAtomic(ctx, uc.txManager, uc.retrier, func(txCtx context.Context, tx Transaction) error {
		target, err := uc.lockTarget(txCtx, tx, targetID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		balance := target.ApplyCredit(input.Amount)
		if err := uc.accountRepo.UpdateBalance(txCtx, tx, target.ID, balance, now); err != nil {
			return err
		}

		metadata := map[string]any{"issued_by": actor.ExternalID}
		if note != "" {
			metadata["note"] = note
		}

		record := &domain.Transaction{
			ID:         uc.idGen.Generate(),
			SenderID:   target.ID,
			ReceiverID: target.ID,
			Sender:     uc.authority,
			Receiver:   target.Snapshot(),
			Amount:     input.Amount,
			Type:       domain.TypeTopUp,
			Metadata:   metadata,
			CreatedAt:  now,
		}
		if err := uc.persist(txCtx, tx, record, actor, domain.AuditActionTopUp, input.RequestID,
			domain.JSON{"balance": target.Balance.String()},
			domain.JSON{"balance": balance.String(), "amount": input.Amount.String()},
		); err != nil {
			return err
		}

		result = &CreditResult{Transaction: record, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, uc.notifier, []*domain.Transaction{result.Transaction})

	return result, nil
}

// Adjust resets the target's balance to NewBalance and records the delta as an adjustment.
func (uc *TopUpUseCase) Adjust(ctx context.Context, input AdjustInput) (*CreditResult, error) {
	start := time.Now()

	result, err := uc.adjust(ctx, input)

	amount := decimal.Zero
	if result != nil {
		amount = result.Transaction.Amount
	}
	observe(uc.metrics, "adjustment", start, amount, err)

	return result, err
}

func (uc *TopUpUseCase) adjust(ctx context.Context, input AdjustInput) (*CreditResult, error) {
	if !input.NewBalance.Valid {
		return nil, domain.ErrNewBalanceRequired
	}
	newBalance := input.NewBalance.Decimal
	if err := domain.ValidateBalance(newBalance); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}
	if err := domain.ValidateNote(reason); err != nil {
		return nil, err
	}
	if err := domain.ValidatePinPresent(input.Pin); err != nil {
		return nil, err
	}

	targetID := domain.NormalizeExternalID(input.TargetExternalID)
	if targetID == "" {
		return nil, domain.ErrInvalidExternalID
	}

	actor, err := uc.authorizeActor(ctx, input.ActorID, input.Pin)
	if err != nil {
		return nil, err
	}

	var result *CreditResult

	err = runAtomic(ctx, uc.txManager, uc.retrier, func(txCtx context.Context, tx Transaction) error {
		target, err := uc.lockTarget(txCtx, tx, targetID)
		if err != nil {
			return err
		}

		delta := newBalance.Sub(target.Balance)
		if delta.IsZero() {
			return domain.ErrNoBalanceChange
		}

		direction := domain.AdjustmentCredit
		if delta.IsNegative() {
			direction = domain.AdjustmentDebit
		}

		now := time.Now().UTC()
		if err := uc.accountRepo.UpdateBalance(txCtx, tx, target.ID, newBalance, now); err != nil {
			return err
		}

		record := &domain.Transaction{
			ID:         uc.idGen.Generate(),
			SenderID:   target.ID,
			ReceiverID: target.ID,
			Sender:     uc.authority,
			Receiver:   target.Snapshot(),
			Amount:     delta.Abs(),
			Type:       domain.TypeAdjustment,
			Metadata: map[string]any{
				"reason":             reason,
				"previous_balance":   target.Balance.String(),
				"new_balance":        newBalance.String(),
				domain.MetaDirection: direction,
				"actor":              actor.ExternalID,
			},
			CreatedAt: now,
		}
		if err := uc.persist(txCtx, tx, record, actor, domain.AuditActionAdjustment, input.RequestID,
			domain.JSON{"balance": target.Balance.String()},
			domain.JSON{"balance": newBalance.String(), "reason": reason},
		); err != nil {
			return err
		}

		result = &CreditResult{Transaction: record, Balance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, uc.notifier, []*domain.Transaction{result.Transaction})

	return result, nil
}

func (uc *TopUpUseCase) authorizeActor(ctx context.Context, actorID int64, pin string) (*domain.Account, error) {
	actor, err := uc.accountRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Active {
		return nil, domain.ErrAccountInactive
	}
	if err := verifyPin(uc.pinHasher, actor, pin); err != nil {
		return nil, err
	}
	return actor, nil
}

func (uc *TopUpUseCase) lockTarget(ctx context.Context, tx Transaction, externalID string) (*domain.Account, error) {
	accounts, err := uc.accountRepo.GetByExternalIDsForUpdate(ctx, tx, []string{externalID})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, externalID)
	}
	if !accounts[0].Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountInactive, externalID)
	}
	return accounts[0], nil
}

func (uc *TopUpUseCase) persist(
	ctx context.Context,
	tx Transaction,
	record *domain.Transaction,
	actor *domain.Account,
	action domain.AuditAction,
	requestID string,
	before, after domain.JSON,
) error {
	if err := record.Validate(); err != nil {
		return err
	}

	if err := uc.transactionRepo.Create(ctx, tx, record); err != nil {
		return err
	}

	if uc.auditRepo == nil {
		return nil
	}

	return uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           uuid.NewString(),
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: "transaction",
		ResourceID:   record.ID,
		RequestID:    requestID,
		Before:       before,
		After:        after,
		CreatedAt:    record.CreatedAt,
	})
}
