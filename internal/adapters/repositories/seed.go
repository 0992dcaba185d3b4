package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"fleet-scheduling-service/internal/domain"
)

// OrderSeed is one entry of the JSON seed file.
type OrderSeed struct {
	OrderID    string   `json:"order_id"`
	Address    string   `json:"address"`
	Lon        *float64 `json:"lon"`
	Lat        *float64 `json:"lat"`
	Size       int      `json:"size"`
	PinnedDate string   `json:"pinned_date"`
	Zone       string   `json:"zone"`
}

// Populate the orders table from a JSON file. Seeded orders are pending;
// existing rows with the same id are replaced.
func SeedFromJSON(ctx context.Context, db *sql.DB, d Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed orders: read %q: %w", jsonPath, err)
	}

	var data []OrderSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed orders: parse json: %w", err)
	}

	rows := make([]OrderSeed, 0, len(data))
	for i, item := range data {
		item.OrderID = strings.TrimSpace(item.OrderID)
		if item.OrderID == "" {
			return fmt.Errorf("seed orders: item at index %d: order_id cannot be empty", i+1)
		}
		if item.Size < 0 {
			return fmt.Errorf("seed orders: order_id=%s: negative size %d", item.OrderID, item.Size)
		}
		if (item.Lon == nil) != (item.Lat == nil) {
			return fmt.Errorf("seed orders: order_id=%s: lon and lat must be given together", item.OrderID)
		}
		if item.Lon == nil && strings.TrimSpace(item.Address) == "" {
			return fmt.Errorf("seed orders: order_id=%s: needs an address or coordinates", item.OrderID)
		}
		if item.PinnedDate != "" {
			if _, err := time.Parse(time.DateOnly, item.PinnedDate); err != nil {
				return fmt.Errorf("seed orders: order_id=%s: pinned_date: %w", item.OrderID, err)
			}
		}
		rows = append(rows, item)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed orders: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
	INSERT INTO orders (
		order_id,
		address,
		lon,
		lat,
		size,
		pinned_date,
		zone,
		status
	)
	VALUES (%s)
	ON CONFLICT (order_id) DO UPDATE
	SET address = excluded.address,
		lon = excluded.lon,
		lat = excluded.lat,
		size = excluded.size,
		pinned_date = excluded.pinned_date,
		zone = excluded.zone,
		status = excluded.status,
		vehicle_id = '',
		scheduled_date = NULL,
		arrival_at = NULL;
	`, d.placeholders(1, 8))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("seed orders: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range rows {
		var pinned any
		if o.PinnedDate != "" {
			pinned = o.PinnedDate
		}
		if _, err := stmt.ExecContext(ctx,
			o.OrderID, strings.TrimSpace(o.Address), o.Lon, o.Lat, o.Size, pinned, o.Zone, string(domain.StatusPending),
		); err != nil {
			return fmt.Errorf("seed orders: insert order_id=%s: %w", o.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed orders: commit tx: %w", err)
	}

	return nil
}
