package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunMainExitCodes(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOARD_LOG_FORMAT", "console")

	if code := runMain([]string{"-no-such-flag"}); code != 2 {
		t.Errorf("Unknown flag: expected exit code 2, got %d", code)
	}

	t.Setenv("BOARD_BOARD_TIMEZONE", "Nowhere/Invalid")
	if code := runMain(nil); code != 1 {
		t.Errorf("Invalid config: expected exit code 1, got %d", code)
	}
}

func TestRunMainClosesStorageOnStartupFailure(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("BOARD_LOG_FORMAT", "console")

	db := filepath.Join(dir, "board.db")
	t.Setenv("BOARD_STORAGE_DRIVER", "sqlite")
	t.Setenv("BOARD_STORAGE_PATH", db)

	// A malformed auth file fails startup after storage is open
	authFile := filepath.Join(dir, "auth.secret")
	if err := os.WriteFile(authFile, []byte("no-separator"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTH_FILE", authFile)

	if code := runMain([]string{"-edit"}); code != 1 {
		t.Fatalf("Expected exit code 1, got %d", code)
	}

	if _, err := os.Stat(db); err != nil {
		t.Fatalf("Expected database to be created: %v", err)
	}
	// SQLite removes the write-ahead log when the last connection closes
	if _, err := os.Stat(db + "-wal"); !os.IsNotExist(err) {
		t.Errorf("Expected storage to be closed before exit, -wal still present (err=%v)", err)
	}
}
