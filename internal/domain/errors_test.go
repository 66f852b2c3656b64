package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("transfer: %w", ErrInsufficientFunds)

	if !errors.Is(wrapped, ErrInsufficientFunds) {
		t.Fatal("expected wrapped error to match its sentinel")
	}
	if errors.Is(wrapped, ErrInvalidAmount) {
		t.Fatal("different codes must not match")
	}
	if KindOf(wrapped) != KindInsufficientFunds {
		t.Fatalf("expected insufficient_funds kind, got %q", KindOf(wrapped))
	}
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := ErrConflict.Wrap(cause)

	if !errors.Is(err, ErrConflict) {
		t.Fatal("expected wrapped conflict to match ErrConflict")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if ErrConflict.Err != nil {
		t.Fatal("Wrap must not mutate the sentinel")
	}
}

func TestNewReceiversNotFound(t *testing.T) {
	err := NewReceiversNotFound([]string{"B1", "ZZ9"})

	if !errors.Is(err, ErrReceiverNotFound) {
		t.Fatalf("expected ErrReceiverNotFound, got %v", err)
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found kind, got %q", KindOf(err))
	}

	missing := MissingOf(err)
	if len(missing) != 2 || missing[0] != "B1" || missing[1] != "ZZ9" {
		t.Fatalf("unexpected missing list %v", missing)
	}
	if got := err.Error(); got != "receiver not found: B1, ZZ9" {
		t.Fatalf("unexpected message %q", got)
	}
	if len(ErrReceiverNotFound.Missing) != 0 {
		t.Fatal("sentinel must stay untouched")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Fatal("plain errors have no kind")
	}
	if KindOf(nil) != "" {
		t.Fatal("nil has no kind")
	}
}
