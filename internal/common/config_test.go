package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFolderMapBuiltIn(t *testing.T) {
	cfg := &Config{}
	cfg.Google.GmailFolderID = "gmail-folder"
	cfg.Google.InputFolderID = "input-folder"

	m, err := cfg.LoadFolderMap()
	if err != nil {
		t.Fatalf("load folder map: %v", err)
	}
	if m["gmail-folder"] != "email" || m["input-folder"] != "upload" {
		t.Fatalf("built-in map = %v", m)
	}
}

func TestLoadFolderMapFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folders.yaml")
	content := "folders:\n  gmail-folder: upload\n  extra-folder: email\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	cfg.Google.GmailFolderID = "gmail-folder"
	cfg.Google.InputFolderID = "input-folder"
	cfg.Pipeline.FolderMapFile = path

	m, err := cfg.LoadFolderMap()
	if err != nil {
		t.Fatalf("load folder map: %v", err)
	}
	if m["gmail-folder"] != "upload" {
		t.Fatalf("file entry should override built-in, got %q", m["gmail-folder"])
	}
	if m["extra-folder"] != "email" || m["input-folder"] != "upload" {
		t.Fatalf("merged map = %v", m)
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if !HasCode(err, CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.Timezone = "Not/AZone"
	if loc := cfg.Location(); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
}

func TestLogTimestampLayout(t *testing.T) {
	ts := time.Date(2026, 8, 29, 14, 5, 9, 0, time.UTC)
	got := LogTimestamp(ts, time.UTC)
	if got != "29-08-2026 02:05:09 PM" {
		t.Fatalf("timestamp = %q", got)
	}
}
