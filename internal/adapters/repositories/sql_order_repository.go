package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
)

// SQL-backed implementation of the OrderRepository port, shared by the
// SQLite and PostgreSQL backends.
type SQLOrderRepository struct {
	DB      *sql.DB
	Dialect Dialect
	// Location interprets stored calendar dates. Defaults to UTC.
	Location *time.Location
}

func NewSQLOrderRepository(db *sql.DB, d Dialect, loc *time.Location) *SQLOrderRepository {
	return &SQLOrderRepository{DB: db, Dialect: d, Location: loc}
}

const orderColumns = `
		order_id,
		address,
		lon,
		lat,
		size,
		pinned_date,
		vehicle_id,
		zone,
		status,
		scheduled_date,
		arrival_at`

// Return orders matching the filter, ordered by id.
func (s *SQLOrderRepository) List(ctx context.Context, f ports.OrderFilter) (_ []domain.Order, err error) {
	defer obs.Time(ctx, "orders.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql order repository: DB is nil")
	}

	var (
		where []string
		args  []any
	)
	next := func() string { return s.Dialect.placeholder(len(args)) }

	if len(f.IDs) > 0 {
		from := len(args) + 1
		for _, id := range f.IDs {
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("order_id IN (%s)", s.Dialect.placeholders(from, len(f.IDs))))
	}
	if f.Zone != "" {
		args = append(args, f.Zone)
		where = append(where, "zone = "+next())
	}
	if len(f.Statuses) > 0 {
		from := len(args) + 1
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
		where = append(where, fmt.Sprintf("status IN (%s)", s.Dialect.placeholders(from, len(f.Statuses))))
	}
	if f.From != nil {
		args = append(args, s.date(*f.From))
		where = append(where, "scheduled_date >= "+next())
	}
	if f.To != nil {
		args = append(args, s.date(*f.To))
		where = append(where, "scheduled_date < "+next())
	}

	query := "SELECT" + orderColumns + "\n\tFROM orders"
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY order_id;"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: query orders table: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	for rows.Next() {
		o, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: row iteration: %w", err)
	}

	return orders, nil
}

// Update a single order's location and/or status.
func (s *SQLOrderRepository) Update(ctx context.Context, orderID string, upd ports.OrderUpdate) (err error) {
	defer obs.Time(ctx, "orders.Update")(&err)

	if s.DB == nil {
		return errors.New("sql order repository: DB is nil")
	}

	var (
		sets []string
		args []any
	)
	if upd.Location != nil {
		args = append(args, upd.Location.Lon, upd.Location.Lat)
		sets = append(sets, "lon = "+s.Dialect.placeholder(len(args)-1), "lat = "+s.Dialect.placeholder(len(args)))
	}
	if upd.Status != nil {
		args = append(args, string(*upd.Status))
		sets = append(sets, "status = "+s.Dialect.placeholder(len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, orderID)

	query := fmt.Sprintf("UPDATE orders SET %s WHERE order_id = %s;", strings.Join(sets, ", "), s.Dialect.placeholder(len(args)))

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %s: rows affected: %w", orderID, err)
	}
	if n == 0 {
		return fmt.Errorf("update order %s: %w", orderID, domain.ErrNotFound)
	}

	return nil
}

// Persist a planning result in one transaction. Any failure, including
// an unknown order id, rolls back every assignment of the batch.
func (s *SQLOrderRepository) BatchUpsert(ctx context.Context, assignments []domain.Assignment) (err error) {
	defer obs.Time(ctx, "orders.BatchUpsert")(&err)

	if len(assignments) == 0 {
		return nil
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.OrderID)
	}
	fail := func(err error) error {
		return &domain.PersistenceError{OrderIDs: ids, Err: err}
	}

	if s.DB == nil {
		return fail(errors.New("sql order repository: DB is nil"))
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	d := s.Dialect
	query := fmt.Sprintf(`
	UPDATE orders
	SET vehicle_id = %s,
		scheduled_date = %s,
		arrival_at = %s,
		status = %s
	WHERE order_id = %s;
	`, d.placeholder(1), d.placeholder(2), d.placeholder(3), d.placeholder(4), d.placeholder(5))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fail(fmt.Errorf("prepare update: %w", err))
	}
	defer stmt.Close()

	for _, a := range assignments {
		res, err := stmt.ExecContext(ctx,
			a.VehicleID,
			s.date(a.ScheduledDate),
			a.ArrivalAt.Format(time.RFC3339),
			string(domain.StatusScheduled),
			a.OrderID,
		)
		if err != nil {
			return fail(fmt.Errorf("update order_id=%s: %w", a.OrderID, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fail(fmt.Errorf("update order_id=%s: rows affected: %w", a.OrderID, err))
		}
		if n == 0 {
			return fail(fmt.Errorf("update order_id=%s: %w", a.OrderID, domain.ErrNotFound))
		}
	}

	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit tx: %w", err))
	}

	return nil
}

func (s *SQLOrderRepository) scan(rows *sql.Rows) (domain.Order, error) {
	var (
		o                          domain.Order
		lon, lat                   sql.NullFloat64
		pinned, scheduled, arrival sql.NullString
		status                     string
	)
	if err := rows.Scan(
		&o.OrderID, &o.Address, &lon, &lat, &o.Size, &pinned, &o.VehicleID, &o.Zone, &status, &scheduled, &arrival,
	); err != nil {
		return domain.Order{}, fmt.Errorf("scan row: %w", err)
	}
	o.Status = domain.OrderStatus(status)

	if lon.Valid && lat.Valid {
		o.Location = &domain.Coordinates{Lon: lon.Float64, Lat: lat.Float64}
	}

	var err error
	if o.PinnedDate, err = s.parseDate(pinned); err != nil {
		return domain.Order{}, fmt.Errorf("order %s pinned_date: %w", o.OrderID, err)
	}
	if o.ScheduledDate, err = s.parseDate(scheduled); err != nil {
		return domain.Order{}, fmt.Errorf("order %s scheduled_date: %w", o.OrderID, err)
	}
	if arrival.Valid && arrival.String != "" {
		t, err := time.Parse(time.RFC3339, arrival.String)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %s arrival_at: %w", o.OrderID, err)
		}
		t = t.In(s.location())
		o.ArrivalAt = &t
	}

	return o, nil
}

func (s *SQLOrderRepository) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *SQLOrderRepository) date(t time.Time) string {
	return t.In(s.location()).Format(time.DateOnly)
}

func (s *SQLOrderRepository) parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v.String, s.location())
	if err != nil {
		return nil, err
	}
	return &t, nil
}
