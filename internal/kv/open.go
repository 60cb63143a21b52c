package kv

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is one of memory, file, sqlite, postgres.
	Backend string `yaml:"backend"`
	// Dir is the data directory for the file and sqlite backends.
	Dir string `yaml:"dir"`
	// MaxValueBytes caps a single encoded value; 0 disables the cap.
	MaxValueBytes int            `yaml:"max_value_bytes"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// Open builds the backend described by cfg.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindFile, "":
		return NewFileBackend(cfg.Dir)
	case KindSQLite:
		return NewSQLiteBackend(ctx, filepath.Join(cfg.Dir, "agriflow.db"))
	case KindPostgres:
		return ConnectPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
