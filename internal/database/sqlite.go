package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"triarb/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	coin TEXT NOT NULL,
	triangle TEXT NOT NULL,
	trigger_pair TEXT NOT NULL,
	direction TEXT NOT NULL,
	ratio REAL NOT NULL,
	amount REAL NOT NULL,
	executable_amount REAL NOT NULL,
	profit REAL NOT NULL,
	profit_asset TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opportunities_triangle ON opportunities(triangle);`

// SQLiteRepository journals opportunities to a local SQLite file.
type SQLiteRepository struct {
	DB *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{DB: db}, nil
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, sqliteSchema)
	return err
}

// LogOpportunity inserts one opportunity row.
func (r *SQLiteRepository) LogOpportunity(ctx context.Context, opp model.Opportunity) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO opportunities
			(timestamp, coin, triangle, trigger_pair, direction, ratio, amount, executable_amount, profit, profit_asset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opp.Timestamp.UTC(), opp.Coin, opp.Triangle, opp.TriggerPair, opp.Direction.String(),
		opp.Ratio, opp.Amount, opp.ExecutableAmount, opp.Profit, opp.ProfitAsset)
	if err != nil {
		return fmt.Errorf("insert opportunity %s: %w", opp.Triangle, err)
	}
	return nil
}

func (r *SQLiteRepository) Close() {
	_ = r.DB.Close()
}
