package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDirPrefersXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/catalog" {
		t.Fatalf("got %s", got)
	}
}

func TestDefaultDataDirWithoutHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "")
	if got := DefaultDataDir(); got != "./data" {
		t.Fatalf("expected ./data without a home directory, got %s", got)
	}
}

func TestDefaultDataDirNamesCatalog(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	got := DefaultDataDir()
	if got != DefaultDataDir() {
		t.Fatalf("DefaultDataDir is not stable")
	}
	if got == "./data" {
		t.Skip("no home directory on this host")
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("expected an absolute path, got %s", got)
	}
	if base := strings.ToLower(filepath.Base(got)); base != "catalog" && base != ".catalog" {
		t.Fatalf("expected a catalog directory, got %s", got)
	}
}

func TestIsDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cases := map[string]bool{
		t.TempDir():                  true,
		"/non/existent/catalog/path": false,
		file:                         false,
	}
	for path, want := range cases {
		if got := isDir(path); got != want {
			t.Errorf("isDir(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestDataSubdirectories(t *testing.T) {
	if got := StoreDir("/srv/catalog"); got != filepath.Join("/srv/catalog", "store") {
		t.Fatalf("store dir %s", got)
	}
	if got := DocumentsDir("/srv/catalog"); got != filepath.Join("/srv/catalog", "documents") {
		t.Fatalf("documents dir %s", got)
	}
}
