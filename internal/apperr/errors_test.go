package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestStoreWrapsBothWays(t *testing.T) {
	cause := errors.New("connection refused")
	err := Store("loading projects", cause)

	if !errors.Is(err, ErrDataUnavailable) {
		t.Error("expected ErrDataUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the driver error to stay reachable")
	}
	if Store("noop", nil) != nil {
		t.Error("Store(nil) should be nil")
	}
}

func TestStoreKeepsClassifiedErrors(t *testing.T) {
	inner := Invalid("amount", "must be a positive number")
	err := Store("creating expenditure", inner)
	if errors.Is(err, ErrDataUnavailable) {
		t.Error("validation error must not become DataUnavailable")
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "amount" {
		t.Errorf("FieldError lost: %v", err)
	}
}

func TestStatusAndExitCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		exit   int
	}{
		{ErrUnauthenticated, fiber.StatusUnauthorized, 3},
		{ErrForbidden, fiber.StatusForbidden, 4},
		{Invalid("projectId", "is required"), fiber.StatusBadRequest, 5},
		{NotFound("donor"), fiber.StatusNotFound, 6},
		{fmt.Errorf("project has ledger entries: %w", ErrConflict), fiber.StatusConflict, 8},
		{Store("x", errors.New("boom")), fiber.StatusServiceUnavailable, 7},
		{fmt.Errorf("other"), fiber.StatusInternalServerError, 1},
		{fiber.NewError(fiber.StatusConflict, "dup"), fiber.StatusConflict, 1},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.status {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.status)
		}
		if got := ExitCode(tt.err); got != tt.exit {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.exit)
		}
	}
	if ExitCode(nil) != 0 {
		t.Error("ExitCode(nil) != 0")
	}
}

func TestUnauthenticatedAndForbiddenDiffer(t *testing.T) {
	if Status(ErrUnauthenticated) == Status(ErrForbidden) {
		t.Fatal("denials must map to distinct statuses")
	}
	if ExitCode(ErrUnauthenticated) == ExitCode(ErrForbidden) {
		t.Fatal("denials must map to distinct exit codes")
	}
}
