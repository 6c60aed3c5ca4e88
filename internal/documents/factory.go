package documents

import (
	"fmt"
	"path/filepath"

	"flightres/internal/config"
	"flightres/internal/database"
	"flightres/internal/fr"
)

// NewDocumentStoreFromConfig creates a DocumentStore based on the storage config type.
func NewDocumentStoreFromConfig(cfg config.StorageConfig, logger fr.Logger) (fr.DocumentStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryDocuments(), nil
	case "filesystem":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for filesystem storage")
		}
		return NewFileSystemDocuments(cfg.DataDir)
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite storage")
		}
		return database.NewSQLiteDocuments(filepath.Join(cfg.DataDir, "flightres.db"), logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
