package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSecureMkdirAll(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "a", "b", "c")

	if err := SecureMkdirAll(nested, 0o700); err != nil {
		t.Fatalf("SecureMkdirAll: %v", err)
	}

	info, err := os.Stat(nested)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("created path is not a directory")
	}
	if runtime.GOOS != "windows" {
		if got := info.Mode().Perm(); got&^os.FileMode(0o700) != 0 {
			t.Errorf("perm = %04o, has bits beyond 0700", got)
		}
	}

	// Idempotent on existing directories.
	if err := SecureMkdirAll(nested, 0o700); err != nil {
		t.Errorf("second SecureMkdirAll: %v", err)
	}
}
