package domain

import (
	"errors"
	"strings"
)

// ErrorKind classifies a ledger failure. Callers branch on the kind, never on the message.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindAuthorization     ErrorKind = "authorization"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindConflict          ErrorKind = "conflict"
	KindIntegrity         ErrorKind = "integrity"
)

// Error is a classified error with a stable code.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Missing []string
	Err     error
}

// NewError creates a classified error.
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Missing) > 0 {
		msg += ": " + strings.Join(e.Missing, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// KindOf returns the classification of err, or an empty kind for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MissingOf returns the unresolved identifiers carried by a not-found error.
func MissingOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Missing
	}
	return nil
}

// NewReceiversNotFound reports every receiver identifier that did not resolve.
func NewReceiversNotFound(missing []string) error {
	cp := *ErrReceiverNotFound
	cp.Missing = missing
	return &cp
}

var (
	// Validation errors
	ErrInvalidAmount      = NewError(KindValidation, "INVALID_AMOUNT", "amount must be positive")
	ErrAmountTooSmall     = NewError(KindValidation, "AMOUNT_TOO_SMALL", "amount below minimum allowed")
	ErrAmountTooLarge     = NewError(KindValidation, "AMOUNT_TOO_LARGE", "amount exceeds maximum allowed")
	ErrAmountPrecision    = NewError(KindValidation, "AMOUNT_PRECISION", "amount has too many decimal places")
	ErrPinRequired        = NewError(KindValidation, "PIN_REQUIRED", "authorization code is required")
	ErrInvalidPinFormat   = NewError(KindValidation, "INVALID_PIN_FORMAT", "authorization code must be 4 to 6 digits")
	ErrSelfTransfer       = NewError(KindValidation, "SELF_TRANSFER", "cannot transfer to own account")
	ErrNoRecipients       = NewError(KindValidation, "NO_RECIPIENTS", "group transfer needs at least one recipient")
	ErrTooManyRecipients  = NewError(KindValidation, "TOO_MANY_RECIPIENTS", "group transfer has too many recipients")
	ErrInvalidExternalID  = NewError(KindValidation, "INVALID_EXTERNAL_ID", "invalid external identifier")
	ErrInvalidAccountName = NewError(KindValidation, "INVALID_ACCOUNT_NAME", "invalid account name")
	ErrInvalidRole        = NewError(KindValidation, "INVALID_ROLE", "invalid role")
	ErrReasonRequired     = NewError(KindValidation, "REASON_REQUIRED", "adjustment reason is required")
	ErrNoBalanceChange    = NewError(KindValidation, "NO_BALANCE_CHANGE", "adjustment does not change the balance")
	ErrNegativeBalance    = NewError(KindValidation, "NEGATIVE_BALANCE", "balance cannot be negative")
	ErrNewBalanceRequired = NewError(KindValidation, "NEW_BALANCE_REQUIRED", "new balance is required")
	ErrInvalidFilter      = NewError(KindValidation, "INVALID_FILTER", "invalid history filter")
	ErrMetadataTooLarge   = NewError(KindValidation, "METADATA_TOO_LARGE", "metadata size exceeds limit")
	ErrPasswordTooWeak    = NewError(KindValidation, "PASSWORD_TOO_WEAK", "password does not meet requirements")
	ErrAccountInactive    = NewError(KindValidation, "ACCOUNT_INACTIVE", "account is inactive")
	ErrNoAccounts         = NewError(KindValidation, "NO_ACCOUNTS", "nothing to provision")

	// Authorization errors
	ErrPinNotConfigured   = NewError(KindAuthorization, "PIN_NOT_CONFIGURED", "authorization not configured")
	ErrInvalidPin         = NewError(KindAuthorization, "INVALID_PIN", "invalid authorization code")
	ErrPolicyDenied       = NewError(KindAuthorization, "POLICY_DENIED", "operation not permitted for this principal")
	ErrUnauthorized       = NewError(KindAuthorization, "UNAUTHENTICATED", "unauthorized")
	ErrInvalidCredentials = NewError(KindAuthorization, "INVALID_CREDENTIALS", "invalid credentials")
	ErrInvalidToken       = NewError(KindAuthorization, "INVALID_TOKEN", "invalid token")
	ErrExpiredToken       = NewError(KindAuthorization, "EXPIRED_TOKEN", "token has expired")

	// Lookup errors
	ErrAccountNotFound     = NewError(KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	ErrReceiverNotFound    = NewError(KindNotFound, "RECEIVER_NOT_FOUND", "receiver not found")
	ErrTransactionNotFound = NewError(KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")

	ErrInsufficientFunds = NewError(KindInsufficientFunds, "INSUFFICIENT_FUNDS", "insufficient balance")

	// Conflict errors are safe to retry.
	ErrConflict      = NewError(KindConflict, "CONCURRENT_MODIFICATION", "concurrent modification, retry the operation")
	ErrAccountExists = NewError(KindConflict, "ACCOUNT_EXISTS", "account already exists")

	ErrIntegrity = NewError(KindIntegrity, "INTEGRITY_VIOLATION", "ledger integrity violation")
)
