package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORTAL_CONFIG", "")
	t.Setenv("VARIANCE_THRESHOLD", "")
	t.Setenv("AUDIT_MODE", "")
	t.Setenv("UPLOAD_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UploadDir != "uploads" {
		t.Errorf("UploadDir = %q, want uploads", cfg.UploadDir)
	}
	if cfg.VarianceThreshold != 15 {
		t.Errorf("VarianceThreshold = %d, want 15", cfg.VarianceThreshold)
	}
	if cfg.AuditMode != "atomic" {
		t.Errorf("AuditMode = %q, want atomic", cfg.AuditMode)
	}
	if cfg.HTTPPort == "" {
		t.Error("HTTPPort is empty")
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.toml")
	body := `
http_port = "9090"
variance_threshold = 20
audit_mode = "best_effort"
jwt_secret = "from-file-from-file-from-file-000"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORTAL_CONFIG", path)
	t.Setenv("HTTP_PORT", "")
	t.Setenv("AUDIT_MODE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("VARIANCE_THRESHOLD", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.AuditMode != "best_effort" {
		t.Errorf("AuditMode = %q, want best_effort", cfg.AuditMode)
	}
	if cfg.VarianceThreshold != 25 {
		t.Errorf("VarianceThreshold = %d, want env override 25", cfg.VarianceThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("PORTAL_CONFIG", "")
	t.Setenv("VARIANCE_THRESHOLD", "fifteen")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-integer threshold")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{JWTSecret: strings.Repeat("x", 32), VarianceThreshold: 15, AuditMode: "atomic"}, ""},
		{"missing secret", Config{VarianceThreshold: 15, AuditMode: "atomic"}, "JWT_SECRET is not set"},
		{"short secret", Config{JWTSecret: "short", VarianceThreshold: 15, AuditMode: "atomic"}, "at least 32"},
		{"zero threshold", Config{JWTSecret: strings.Repeat("x", 32), AuditMode: "atomic"}, "threshold"},
		{"bad mode", Config{JWTSecret: strings.Repeat("x", 32), VarianceThreshold: 15, AuditMode: "sometimes"}, "audit mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCORSOriginList(t *testing.T) {
	cfg := Config{CORSOrigins: " https://a.org, ,https://b.org "}
	got := cfg.CORSOriginList()
	if len(got) != 2 || got[0] != "https://a.org" || got[1] != "https://b.org" {
		t.Fatalf("CORSOriginList = %q", got)
	}
}
