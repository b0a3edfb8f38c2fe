// internal/repository/open.go
package repository

import (
	"fmt"

	"github.com/secondhand/marketplace-backend/internal/config"
	"github.com/secondhand/marketplace-backend/internal/database"
)

// Open builds the store selected by STORAGE_BACKEND.
func Open(cfg *config.Config) (*Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.Storage.DataDir)
	case config.BackendPostgres:
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db); err != nil {
			database.Close(db)
			return nil, err
		}
		return NewGormStore(db), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
