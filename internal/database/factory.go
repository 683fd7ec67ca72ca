package database

import (
	"fmt"
	"os"
	"path/filepath"

	"wm-go/internal/config"
	"wm-go/internal/database/migrations"
	"wm-go/internal/wm"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type. File-backed stores are migrated to the latest schema;
// in-memory stores get the schema applied directly.
func NewStoreFromConfig(cfg config.DatabaseConfig) (wm.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		store, err := NewSQLiteStore(filepath.Join(cfg.DataDir, "wardrobe.db"))
		if err != nil {
			return nil, err
		}
		if err := migrations.Up(store.DB()); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		if err := migrations.Check(store.DB()); err != nil {
			store.Close()
			return nil, fmt.Errorf("database schema out of date: %w", err)
		}
		return store, nil
	case "memory":
		store, err := NewSQLiteStore(":memory:")
		if err != nil {
			return nil, err
		}
		if _, err := store.DB().Exec(Schema); err != nil {
			store.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
