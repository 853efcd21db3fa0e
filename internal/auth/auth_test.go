package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/models"
	"ngo-portal-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func TestResolveIdentity(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	legacyManager := testutil.User(t, db, models.LegacyRoleManager, "")
	id, err := auth.ResolveIdentity(ctx, db, legacyManager.ID)
	if err != nil || id == nil || id.Role != models.RoleProjectManager {
		t.Fatalf("legacy manager: %+v, %v", id, err)
	}

	profiled := testutil.User(t, db, models.LegacyRoleAdmin, models.RoleDonor)
	id, err = auth.ResolveIdentity(ctx, db, profiled.ID)
	if err != nil || id == nil || id.Role != models.RoleDonor {
		t.Fatalf("profile role: %+v, %v", id, err)
	}

	if id, err := auth.ResolveIdentity(ctx, db, "missing"); id != nil || err != nil {
		t.Fatalf("missing user: %+v, %v", id, err)
	}

	inactive := testutil.User(t, db, models.LegacyRoleAdmin, models.RoleAdmin)
	db.Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false)
	if id, err := auth.ResolveIdentity(ctx, db, inactive.ID); id != nil || err != nil {
		t.Fatalf("inactive user: %+v, %v", id, err)
	}
}

func TestParseSessionToken(t *testing.T) {
	tok := testutil.Token(t, "u-42")
	if got, err := auth.ParseSessionToken(testutil.Secret, tok); err != nil || got != "u-42" {
		t.Fatalf("valid token: %q, %v", got, err)
	}
	if _, err := auth.ParseSessionToken("another-secret-another-secret-0000", tok); err == nil {
		t.Error("token accepted with the wrong secret")
	}

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.SessionClaims{
		UserID:           "u-42",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}).SignedString([]byte(testutil.Secret))
	if _, err := auth.ParseSessionToken(testutil.Secret, expired); err == nil {
		t.Error("expired token accepted")
	}

	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.SessionClaims{}).SignedString([]byte(testutil.Secret))
	if _, err := auth.ParseSessionToken(testutil.Secret, noUser); err == nil {
		t.Error("token without user id accepted")
	}
}

func newApp() *fiber.App {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(log)})
	app.Use(auth.SessionMiddleware(testutil.Secret, log))
	app.Get("/me", auth.MeHandler())
	app.Post("/edit", auth.RequireEditAccess(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestSessionMiddleware(t *testing.T) {
	db := testutil.OpenDB(t)
	admin := testutil.User(t, db, models.LegacyRoleUser, models.RoleAdmin)
	app := newApp()

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, admin.ID))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		User    auth.Identity `json:"user"`
		CanEdit bool          `json:"canEdit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.User.Role != models.RoleAdmin || !body.CanEdit {
		t.Fatalf("me = %+v", body)
	}

	// Cookie sessions resolve the same way.
	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", auth.SessionCookieName+"="+testutil.Token(t, admin.ID))
	if resp, _ := app.Test(req); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("cookie session status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if resp, _ := app.Test(req); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("bad token status = %d", resp.StatusCode)
	}
}

func TestRequireEditAccess(t *testing.T) {
	db := testutil.OpenDB(t)
	manager := testutil.User(t, db, models.LegacyRoleManager, "")
	donor := testutil.User(t, db, models.LegacyRoleUser, models.RoleDonor)
	app := newApp()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"anonymous", "", fiber.StatusUnauthorized},
		{"donor", testutil.Token(t, donor.ID), fiber.StatusForbidden},
		{"manager", testutil.Token(t, manager.ID), fiber.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/edit", nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.status)
		}
	}
}
