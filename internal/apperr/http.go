package apperr

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrDataUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ExitCode returns the operator CLI exit status for err. Each taxonomy
// member gets its own code so scripts can tell them apart.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUnauthenticated):
		return 3
	case errors.Is(err, ErrForbidden):
		return 4
	case errors.Is(err, ErrInvalidInput):
		return 5
	case errors.Is(err, ErrNotFound):
		return 6
	case errors.Is(err, ErrConflict):
		return 8
	case errors.Is(err, ErrDataUnavailable):
		return 7
	default:
		return 1
	}
}

// Handler is the fiber ErrorHandler. Unclassified errors are logged and
// answered with a generic message.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := Status(err)
		body := fiber.Map{}

		var fe *fiber.Error
		var field *FieldError
		switch {
		case errors.As(err, &fe):
			body["error"] = fe.Message
		case errors.As(err, &field):
			body["error"] = field.Error()
			body["field"] = field.Field
		case errors.Is(err, ErrUnauthenticated):
			body["error"] = "Unauthorized"
		case errors.Is(err, ErrForbidden):
			body["error"] = "Forbidden: insufficient role permissions"
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
			body["error"] = err.Error()
		case errors.Is(err, ErrDataUnavailable):
			logger.Error("store unavailable", "path", c.Path(), "method", c.Method(), "error", err)
			body["error"] = "Data unavailable"
		default:
			logger.Error("unexpected error", "path", c.Path(), "method", c.Method(), "error", err)
			body["error"] = "Internal server error"
		}
		return c.Status(status).JSON(body)
	}
}
