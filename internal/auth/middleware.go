package auth

import (
	"log/slog"
	"strings"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/database"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxIdentityKey    = "identity"
	SessionCookieName = "session"
)

// SessionMiddleware resolves the caller and stores the Identity in locals.
// A missing or invalid credential leaves the request anonymous; the
// decision to reject belongs to RequireIdentity and RequireEditAccess.
func SessionMiddleware(secret string, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies(SessionCookieName)
		}
		if token == "" {
			return c.Next()
		}

		userID, err := ParseSessionToken(secret, token)
		if err != nil {
			log.Debug("rejected session token", "error", err)
			return c.Next()
		}

		id, err := ResolveIdentity(c.UserContext(), database.DB, userID)
		if err != nil {
			return err
		}
		if id != nil {
			c.Locals(CtxIdentityKey, id)
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentIdentity returns the resolved caller or nil.
func CurrentIdentity(c *fiber.Ctx) *Identity {
	id, _ := c.Locals(CtxIdentityKey).(*Identity)
	return id
}

// RequireIdentity rejects anonymous callers.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentIdentity(c) == nil {
			return apperr.ErrUnauthenticated
		}
		return c.Next()
	}
}

// RequireEditAccess runs the access gate before the handler can touch the
// store.
func RequireEditAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Authorize(CurrentIdentity(c)); err != nil {
			return err
		}
		return c.Next()
	}
}

// EditorIdentity returns the caller when the gate allows them to mutate.
func EditorIdentity(c *fiber.Ctx) (*Identity, error) {
	id := CurrentIdentity(c)
	if err := Authorize(id); err != nil {
		return nil, err
	}
	return id, nil
}
