package config

import (
	"os"
	"path/filepath"
)

// A data directory holds everything a node persists:
//
//	<data>/store      pebble: blob documents and named cursors
//	<data>/documents  catalog documents when Storage is "file"
//
// Postgres and memory storage keep documents elsewhere but still use store/
// for cursors.

// DefaultDataDir picks the data directory used when neither the config nor
// CATALOG_DATA_DIR names one: $XDG_DATA_HOME/catalog, then /var/lib/catalog,
// then the per-user application data folder on macOS and Windows, then
// ~/.catalog. Without a home directory it is ./data.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "catalog")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	candidates := []struct{ parent, dir string }{
		{"/var/lib", "/var/lib/catalog"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "Catalog")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "Catalog")},
	}
	for _, c := range candidates {
		if isDir(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(home, ".catalog")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// StoreDir is the pebble directory inside a data directory.
func StoreDir(dataDir string) string { return filepath.Join(dataDir, "store") }

// DocumentsDir holds catalog documents when the file backend is selected.
func DocumentsDir(dataDir string) string { return filepath.Join(dataDir, "documents") }
