package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirPutAndDelete(t *testing.T) {
	root := t.TempDir()
	d := Dir{Root: root}
	ctx := context.Background()

	if err := d.Put(ctx, "p1/report.pdf", strings.NewReader("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "p1", "report.pdf"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("stored %q, %v", got, err)
	}
	if err := d.Put(ctx, "p1/report.pdf", strings.NewReader("again")); err == nil {
		t.Error("Put overwrote an existing file")
	}

	if err := d.Delete(ctx, "p1/report.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := d.Delete(ctx, "p1/report.pdf"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestDirRejectsEscapingKeys(t *testing.T) {
	d := Dir{Root: t.TempDir()}
	for _, key := range []string{"", ".", "..", "../x", "a/../../x", "/etc/passwd"} {
		if err := d.Put(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) succeeded", key)
		}
	}
}
