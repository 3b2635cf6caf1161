package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"triarb/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	coin VARCHAR(20) NOT NULL,
	triangle VARCHAR(64) NOT NULL,
	trigger_pair VARCHAR(32) NOT NULL,
	direction VARCHAR(8) NOT NULL,
	ratio DOUBLE PRECISION NOT NULL,
	amount NUMERIC(30, 12) NOT NULL,
	executable_amount NUMERIC(30, 12) NOT NULL,
	profit NUMERIC(30, 12) NOT NULL,
	profit_asset VARCHAR(20) NOT NULL
);`

// PostgresRepository journals opportunities to PostgreSQL.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository connects a pool to dsn.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, postgresSchema)
	return err
}

// LogOpportunity inserts one opportunity row.
func (r *PostgresRepository) LogOpportunity(ctx context.Context, opp model.Opportunity) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO opportunities
			(timestamp, coin, triangle, trigger_pair, direction, ratio, amount, executable_amount, profit, profit_asset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		opp.Timestamp, opp.Coin, opp.Triangle, opp.TriggerPair, opp.Direction.String(),
		opp.Ratio, opp.Amount, opp.ExecutableAmount, opp.Profit, opp.ProfitAsset)
	if err != nil {
		return fmt.Errorf("insert opportunity %s: %w", opp.Triangle, err)
	}
	return nil
}

func (r *PostgresRepository) Close() {
	r.Pool.Close()
}
