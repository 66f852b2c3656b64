package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

const profileCacheTTL = 5 * time.Minute

// AccountUseCase handles account provisioning and lookups.
type AccountUseCase struct {
	txManager      TransactionManager
	accountRepo    AccountRepository
	auditRepo      AuditRepository
	passwordHasher SecretHasher
	pinHasher      SecretHasher
	cache          Cache
	metrics        *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase. cache and metrics may be nil.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	auditRepo AuditRepository,
	passwordHasher SecretHasher,
	pinHasher SecretHasher,
	cache Cache,
	metrics *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:      txManager,
		accountRepo:    accountRepo,
		auditRepo:      auditRepo,
		passwordHasher: passwordHasher,
		pinHasher:      pinHasher,
		cache:          cache,
		metrics:        metrics,
	}
}

// ProvisionInput describes one account to create.
type ProvisionInput struct {
	Department *string `json:"department,omitempty"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Password   string  `json:"password,omitempty"`
	Pin        string  `json:"pin,omitempty"`
}

// PublicProfile is what any authenticated caller may see about another account.
type PublicProfile struct {
	ExternalID string      `json:"external_id"`
	Name       string      `json:"name"`
	Role       domain.Role `json:"role"`
}

// Provision creates accounts in one transaction. Balances start at zero;
// money only enters through top-ups.
func (uc *AccountUseCase) Provision(ctx context.Context, actorID int64, inputs []ProvisionInput) ([]*domain.Account, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrNoAccounts
	}

	accounts := make([]*domain.Account, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		account, err := uc.buildAccount(in)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", in.ExternalID, err)
		}
		if seen[account.ExternalID] {
			return nil, fmt.Errorf("%w: %s listed twice", domain.ErrAccountExists, account.ExternalID)
		}
		seen[account.ExternalID] = true
		accounts = append(accounts, account)
	}

	err := runAtomic(ctx, uc.txManager, nil, func(txCtx context.Context, tx Transaction) error {
		for _, account := range accounts {
			if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
				return fmt.Errorf("account %s: %w", account.ExternalID, err)
			}

			if uc.auditRepo == nil {
				continue
			}
			if err := uc.auditRepo.CreateTx(txCtx, tx, &domain.AuditLog{
				ID:           uuid.NewString(),
				ActorID:      actorID,
				Action:       domain.AuditActionAccountProvision,
				ResourceType: "account",
				ResourceID:   account.ExternalID,
				After: domain.JSON{
					"external_id": account.ExternalID,
					"role":        string(account.Role),
					"name":        account.Name,
				},
				CreatedAt: account.CreatedAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsProvisioned.Add(float64(len(accounts)))
	}

	return accounts, nil
}

func (uc *AccountUseCase) buildAccount(in ProvisionInput) (*domain.Account, error) {
	externalID := domain.NormalizeExternalID(in.ExternalID)
	if err := domain.ValidateExternalID(externalID); err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountName(in.Name); err != nil {
		return nil, err
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ExternalID: externalID,
		Name:       strings.TrimSpace(in.Name),
		Role:       role,
		Balance:    decimal.Zero,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if in.Department != nil && strings.TrimSpace(*in.Department) != "" {
		dept := strings.ToUpper(strings.TrimSpace(*in.Department))
		account.Department = &dept
	}

	if in.Password != "" {
		if err := domain.ValidatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := uc.passwordHasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = &hash
	}

	if in.Pin != "" {
		if err := domain.ValidatePinFormat(in.Pin); err != nil {
			return nil, err
		}
		hash, err := uc.pinHasher.Hash(in.Pin)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		account.PinHash = &hash
	}

	return account, nil
}

// GetAccount retrieves an account by internal key.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// GetByExternalID retrieves an account by its case-insensitive external identifier.
func (uc *AccountUseCase) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	return uc.accountRepo.GetByExternalID(ctx, domain.NormalizeExternalID(externalID))
}

// GetPublicProfile returns name and role for an external identifier.
// Profiles are cached; balances never are.
func (uc *AccountUseCase) GetPublicProfile(ctx context.Context, externalID string) (*PublicProfile, error) {
	externalID = domain.NormalizeExternalID(externalID)
	key := "profile:" + externalID

	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, key); err == nil && data != nil {
			var p PublicProfile
			if json.Unmarshal(data, &p) == nil {
				return &p, nil
			}
		}
	}

	account, err := uc.accountRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	profile := &PublicProfile{ExternalID: account.ExternalID, Name: account.Name, Role: account.Role}

	if uc.cache != nil {
		if data, err := json.Marshal(profile); err == nil {
			_ = uc.cache.Set(ctx, key, data, profileCacheTTL)
		}
	}

	return profile, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}
	return uc.accountRepo.List(ctx, input.Limit, input.Offset)
}
