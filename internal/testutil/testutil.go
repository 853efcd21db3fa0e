// Package testutil sets up an isolated store and signed sessions for
// package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Secret signs every token minted by Token.
const Secret = "test-secret-test-secret-test-secret-0123"

// OpenDB opens a migrated SQLite database in a temp dir and installs it as
// database.DB for the duration of the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite:" + filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Token signs a session for userID with Secret.
func Token(t testing.TB, userID string) string {
	t.Helper()
	claims := auth.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// User inserts an active user with the given legacy role and, when role is
// non-empty, a profile carrying it.
func User(t testing.TB, db *gorm.DB, legacy models.LegacyRole, role models.Role) models.User {
	t.Helper()
	u := models.User{
		Email:     uuid.NewString() + "@example.org",
		FirstName: "Test",
		LastName:  string(role),
		Role:      legacy,
		IsActive:  true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if role != "" {
		if err := db.Create(&models.Profile{UserID: u.ID, Role: role}).Error; err != nil {
			t.Fatalf("create profile: %v", err)
		}
	}
	return u
}

// Editor inserts an admin and returns it.
func Editor(t testing.TB, db *gorm.DB) models.User {
	t.Helper()
	return User(t, db, models.LegacyRoleAdmin, models.RoleAdmin)
}

// Project inserts a project with the given total budget.
func Project(t testing.TB, db *gorm.DB, name string, totalBudget int64) models.Project {
	t.Helper()
	p := models.Project{Name: name, Status: models.ProjectStatusActive, TotalBudget: totalBudget}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// Task inserts a task on projectID.
func Task(t testing.TB, db *gorm.DB, projectID string, status models.TaskStatus) models.Task {
	t.Helper()
	task := models.Task{ProjectID: projectID, Title: "task", Status: status}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

// AuditCount counts audit rows for one entity type.
func AuditCount(t testing.TB, db *gorm.DB, entityType string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.AuditLog{}).Where("entity_type = ?", entityType).Count(&n).Error; err != nil {
		t.Fatalf("count audit logs: %v", err)
	}
	return n
}
