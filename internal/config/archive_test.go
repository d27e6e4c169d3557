package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveAndRollback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relnet.yaml")
	if err := os.WriteFile(path, []byte("capacity: 8\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := Archive(path); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !HasArchive(path) {
		t.Fatal("expected archive to exist")
	}

	if err := os.WriteFile(path, []byte("capacity: 999\n"), 0600); err != nil {
		t.Fatalf("corrupt config: %v", err)
	}

	if err := Rollback(path); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != "capacity: 8\n" {
		t.Errorf("rollback did not restore last-known-good content, got %q", data)
	}
}

func TestRollbackNoArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relnet.yaml")
	if err := os.WriteFile(path, []byte("capacity: 8\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := Rollback(path)
	if err == nil {
		t.Fatal("expected ErrNoArchive")
	}
}
