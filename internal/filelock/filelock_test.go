package filelock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	lock := NewFileLock(path)
	if err := lock.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
}

func TestTryLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first := NewFileLock(path)
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer first.Unlock()

	second := NewFileLock(path)
	acquired, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("TryLock should fail while the lock is held")
	}
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	if err := AtomicWrite(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("content = %q", data)
	}

	// Overwrite must replace, not append.
	if err := AtomicWrite(path, []byte("v2")); err != nil {
		t.Fatalf("second AtomicWrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("content after overwrite = %q", data)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := AtomicWrite(path, []byte("data")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
