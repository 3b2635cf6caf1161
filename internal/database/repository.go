package database

import (
	"context"
	"fmt"

	"triarb/internal/config"
	"triarb/internal/model"
)

// Repository defines the standard interface for database operations.
type Repository interface {
	Migrate(ctx context.Context) error
	LogOpportunity(ctx context.Context, opp model.Opportunity) error
	Close()
}

// NewRepository opens the journal selected by cfg.Driver. It returns a nil
// Repository for the "none" driver.
func NewRepository(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	var (
		repo Repository
		err  error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "postgres":
		repo, err = NewPostgresRepository(ctx, cfg.DSN())
	case "sqlite":
		repo, err = NewSQLiteRepository(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.Driver, err)
	}
	return repo, nil
}
