// GO TESTING BASICS:
// 1. Test files MUST end in _test.go; Go's tooling auto-discovers them
// 2. Test functions MUST start with "Test" and take *testing.T as the only param
// 3. Same package as the code being tested (so we can access unexported stuff)
// 4. Run with: go test ./internal/apperror/ -v  (-v = verbose, shows each test name)
package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("profile", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("ticker", KindEmptyTicker, "ticker is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated(KindBadSignature, "bad initData signature"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "Storage wraps ErrStorage",
			err:       Storage("saving alert", errors.New("disk full")),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "Storage exposes its cause",
			err:       Storage("saving alert", context.Canceled),
			target:    context.Canceled,
			wantMatch: true,
		},
		{
			name:      "wrapped ValidationFailed still matches",
			err:       fmt.Errorf("saving dca: %w", ValidationFailed("levels", KindBadLevelFormat, "bad level")),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated does NOT match ErrValidation",
			err:       Unauthenticated(KindNoUser, "no user"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrStorage",
			err:       ValidationFailed("weekly", KindBadNumber, "not a number"),
			target:    ErrStorage,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("profile", "42"),
			wantMessage: "profile not found with id 42",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("ticker", KindEmptyTicker, "ticker is required"),
			wantMessage: "ticker is required",
		},
		{
			name:        "Storage hides the cause",
			err:         Storage("saving alert", errors.New("SQLITE_BUSY: database is locked")),
			wantMessage: "saving alert failed, please retry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestStorageRef(t *testing.T) {
	a := Storage("op", errors.New("x"))
	b := Storage("op", errors.New("x"))

	if a.Ref == "" {
		t.Fatal("Storage() did not set Ref")
	}
	if a.Ref == b.Ref {
		t.Errorf("Storage() refs should be unique, both = %q", a.Ref)
	}
	if a.Cause() == nil {
		t.Error("Cause() = nil, want the wrapped error")
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Unauthenticated(KindMalformedUser, "bad user"))
	if got := KindOf(err); got != KindMalformedUser {
		t.Errorf("KindOf() = %q, want %q", got, KindMalformedUser)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("dip", KindBadNumber, "dip must be a non-negative number")

	if err.Field != "dip" {
		t.Errorf("Field = %q, want %q", err.Field, "dip")
	}
	if err.Kind != KindBadNumber {
		t.Errorf("Kind = %q, want %q", err.Kind, KindBadNumber)
	}
}
