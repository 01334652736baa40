package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logpkg "github.com/rzbill/catalog/pkg/log"
)

// Storage backends.
const (
	StoragePebble   = "pebble"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// BaseAddress is the absolute address catalog documents are published
	// under. It must end with "/".
	BaseAddress string `json:"baseAddress"`
	// Storage selects the document backend: pebble, file, postgres or memory.
	Storage     string `json:"storage"`
	PostgresDSN string `json:"postgresDSN"`
	// DataDir overrides the runtime data directory.
	DataDir string `json:"dataDir"`
	// Fsync is always or interval.
	Fsync string `json:"fsync"`

	Writer    WriterConfig    `json:"writer"`
	Collector CollectorConfig `json:"collector"`

	HTTPAddr string `json:"httpAddr"`
	GRPCAddr string `json:"grpcAddr"`

	Log logpkg.Config `json:"log"`
}

// WriterConfig tunes catalog commits.
type WriterConfig struct {
	PageSize        int `json:"pageSize"`
	SaveConcurrency int `json:"saveConcurrency"`
	// DocumentContext is the "@context" written on catalog documents.
	DocumentContext json.RawMessage `json:"documentContext,omitempty"`
}

// CollectorConfig tunes catalog replay.
type CollectorConfig struct {
	BatchSize int    `json:"batchSize"`
	Filter    string `json:"filter"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		BaseAddress: "http://127.0.0.1:8080/catalog/",
		Storage:     StoragePebble,
		Fsync:       "always",
		Writer: WriterConfig{
			PageSize:        1000,
			SaveConcurrency: 16,
		},
		Collector: CollectorConfig{
			BatchSize: 200,
		},
		HTTPAddr: ":8080",
		GRPCAddr: ":50051",
		Log: logpkg.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported; use JSON")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Validate reports configuration that cannot be used.
func (c Config) Validate() error {
	if c.BaseAddress == "" || !strings.HasSuffix(c.BaseAddress, "/") {
		return fmt.Errorf("config: baseAddress %q must end with /", c.BaseAddress)
	}
	switch c.Storage {
	case StoragePebble, StorageFile, StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: postgres storage requires postgresDSN")
		}
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	if c.Writer.PageSize < 0 || c.Collector.BatchSize < 0 {
		return errors.New("config: page and batch sizes must not be negative")
	}
	if len(c.Writer.DocumentContext) > 0 && !json.Valid(c.Writer.DocumentContext) {
		return errors.New("config: writer.documentContext is not valid JSON")
	}
	return nil
}
