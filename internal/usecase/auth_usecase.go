package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/campuswallet/internal/domain"
)

// AuthUseCase checks login credentials of provisioned accounts.
type AuthUseCase struct {
	accountRepo    AccountRepository
	passwordHasher SecretHasher
}

// NewAuthUseCase creates a new AuthUseCase.
func NewAuthUseCase(accountRepo AccountRepository, passwordHasher SecretHasher) *AuthUseCase {
	return &AuthUseCase{
		accountRepo:    accountRepo,
		passwordHasher: passwordHasher,
	}
}

// Login returns the account when the password matches.
// Unknown accounts and wrong passwords are indistinguishable to the caller.
func (uc *AuthUseCase) Login(ctx context.Context, externalID, password string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByExternalID(ctx, domain.NormalizeExternalID(externalID))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.Active || account.PasswordHash == nil || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := uc.passwordHasher.Verify(password, *account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	return account, nil
}

// Principal builds the caller identity carried in issued tokens.
func Principal(account *domain.Account) *domain.Principal {
	return &domain.Principal{
		AccountID:  account.ID,
		ExternalID: account.ExternalID,
		Role:       account.Role,
		Department: account.Department,
	}
}
