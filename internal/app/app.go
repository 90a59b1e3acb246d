// Package app wires configuration into the concrete logger, commerce client,
// progress backend and deployment service shared by the server and the CLI.
package app

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/config"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/deploy"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/progress"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/repository/postgres"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/repository/sqlite"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/shopify"
)

// NewLogger builds the production logger in production and the development
// logger otherwise, at LOG_LEVEL
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

// Backend is the progress store and deployment lease selected by PROGRESS_BACKEND
type Backend struct {
	Store  progress.Store
	Locker deploy.Locker
	db     *sql.DB
}

// Close releases the backend's database, if any
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// OpenBackend opens the configured progress backend and applies its migrations.
// Only the postgres backend shares its lease across processes.
func OpenBackend(cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Progress.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Progress.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: &sqlite.ProgressStore{DB: db}, Locker: deploy.NewMemoryLocker(), db: db}, nil

	case config.BackendPostgres:
		db, err := postgres.NewConnection(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{
			Store:  postgres.NewProgressStore(db, logger),
			Locker: postgres.NewAdvisoryLocker(db, logger),
			db:     db,
		}, nil

	default:
		return &Backend{Store: progress.NewMemoryStore(), Locker: deploy.NewMemoryLocker()}, nil
	}
}

// NewCatalog creates the Shopify-backed vessel catalog
func NewCatalog(cfg *config.Config, logger *zap.Logger) *shopify.Client {
	return shopify.NewClient(cfg.Shopify, logger)
}

// NewService creates the deployment service over catalog and backend
func NewService(cfg *config.Config, catalog deploy.Catalog, backend *Backend, logger *zap.Logger) *deploy.Service {
	return deploy.NewService(catalog, backend.Store, backend.Locker, cfg.CatalogID, logger)
}
