package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxExternalIDLength  = 64
	MaxNoteLength        = 280
	MaxTransferAmount    = "1000000000" // 1 billion
	MaxBalance           = "1000000000000"
	MinTransferAmount    = "0.01"
	AmountScale          = 2
	MinPasswordLength    = 8
	MaxPasswordLength    = 128
	DefaultPageSize      = 50
	MaxPageSize          = 200
)

var (
	externalIDRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]*$`)
	pinRegex        = regexp.MustCompile(`^[0-9]{4,6}$`)

	minAmount  = decimal.RequireFromString(MinTransferAmount)
	maxAmount  = decimal.RequireFromString(MaxTransferAmount)
	maxBalance = decimal.RequireFromString(MaxBalance)
)

// ValidateAmount validates a ledger amount
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinTransferAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxTransferAmount)
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d allowed", ErrAmountPrecision, AmountScale)
	}

	return nil
}

// ValidateBalance checks an absolute balance set by an adjustment.
func ValidateBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return ErrNegativeBalance
	}

	if balance.GreaterThan(maxBalance) {
		return fmt.Errorf("%w: maximum balance is %s", ErrAmountTooLarge, MaxBalance)
	}

	if !balance.Equal(balance.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d allowed", ErrAmountPrecision, AmountScale)
	}

	return nil
}

// ValidatePinPresent checks only that an authorization code was supplied.
func ValidatePinPresent(pin string) error {
	if strings.TrimSpace(pin) == "" {
		return ErrPinRequired
	}
	return nil
}

// ValidatePinFormat checks the shape of a new authorization code
func ValidatePinFormat(pin string) error {
	if !pinRegex.MatchString(pin) {
		return ErrInvalidPinFormat
	}
	return nil
}

// ValidateExternalID validates an already-normalized external identifier
func ValidateExternalID(id string) error {
	if id == "" || len(id) > MaxExternalIDLength || !externalIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidExternalID, id)
	}
	return nil
}

// ValidateAccountName validates display name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateNote validates a free-form transfer note
func ValidateNote(note string) error {
	if len(note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrMetadataTooLarge, MaxNoteLength)
	}
	return nil
}

// ValidatePassword validates password length
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooWeak, MinPasswordLength)
	}

	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must not exceed %d characters", ErrPasswordTooWeak, MaxPasswordLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters.
// maxPageSize <= 0 falls back to MaxPageSize.
func ValidatePagination(limit, offset, maxPageSize int) (int, int) {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
