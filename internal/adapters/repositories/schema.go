package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax and DDL for the backing database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// placeholders returns a comma separated list of count parameters
// starting at from.
func (d Dialect) placeholders(from, count int) string {
	ph := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ph = append(ph, d.placeholder(from+i))
	}
	return strings.Join(ph, ",")
}

// Initialize the database schema. Dates are stored as YYYY-MM-DD text and
// arrival times as RFC 3339 text on both backends.
func InitSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	floatType := "REAL"
	stamp := "TEXT DEFAULT CURRENT_TIMESTAMP"
	if d == Postgres {
		floatType = "DOUBLE PRECISION"
		stamp = "TIMESTAMPTZ DEFAULT now()"
	}

	createOrdersQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		address TEXT NOT NULL DEFAULT '',
		lon %[1]s,
		lat %[1]s,
		size INTEGER NOT NULL DEFAULT 0,
		pinned_date TEXT,
		vehicle_id TEXT NOT NULL DEFAULT '',
		zone TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		scheduled_date TEXT,
		arrival_at TEXT
	);
	`, floatType)

	createGeocodeCacheQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon %[1]s NOT NULL,
        lat %[1]s NOT NULL,
        resolved_at %[2]s
    );
	`, floatType, stamp)

	createStatusIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_orders_zone_status
    ON orders(zone, status);
	`

	createScheduleIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_orders_scheduled_date
    ON orders(scheduled_date);
	`

	statements := []string{
		createOrdersQuery,
		createGeocodeCacheQuery,
		createStatusIndexQuery,
		createScheduleIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
