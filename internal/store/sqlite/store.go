// Package sqlite persists orders and station presence in a local SQLite file.
// Triggers append every order change to a log that subscriptions poll.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
	"github.com/Riboost-Studio/print-station/internal/store/sqlite/migrations"
)

const DefaultPollInterval = 500 * time.Millisecond

// ErrDuplicateOrder is returned by InsertOrder for an id already stored.
var ErrDuplicateOrder = errors.New("order already exists")

// Store persists station state in SQLite.
type Store struct {
	sqlDB        *sql.DB
	pollInterval time.Duration
}

var _ store.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func timePtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// Open opens a SQLite store and applies embedded migrations. pollInterval
// bounds how quickly subscriptions observe changes; zero uses the default.
func Open(path string, pollInterval time.Duration) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers, so read-modify-write stays atomic.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, pollInterval: pollInterval}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// InsertOrder stores a new order. The ordering UI owns this write; the
// station binary uses it for seeding and tests.
func (s *Store) InsertOrder(ctx context.Context, o model.Order) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("order id is required")
	}
	if strings.TrimSpace(o.Station) == "" {
		return fmt.Errorf("order station is required")
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	status := o.Status
	if status == "" {
		status = model.OrderPending
	}
	ps := o.PrintStatus

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO orders (
		   id, station, customer_number, status, items_json, total, created_at,
		   printed, printed_at, printed_by, attempts, last_attempt, error
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Station, o.CustomerNumber, string(status), string(items), o.Total.Fixed(), toMillis(createdAt),
		ps.Printed, nullMillis(ps.PrintedAt), ps.PrintedBy, ps.Attempts, nullMillis(ps.LastAttempt), ps.Error,
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("order %s: %w", o.ID, ErrDuplicateOrder)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// SetOrderStatus changes the kitchen workflow status.
func (s *Store) SetOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return requireRow(res, "order", id)
}

// DeleteOrder removes an order.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return requireRow(res, "order", id)
}

const orderColumns = `id, station, customer_number, status, items_json, total, created_at,
	printed, printed_at, printed_by, attempts, last_attempt, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		o                      model.Order
		status, items, total   string
		createdAt              int64
		printedAt, lastAttempt sql.NullInt64
		printedBy, errText     sql.NullString
	)
	if err := row.Scan(
		&o.ID, &o.Station, &o.CustomerNumber, &status, &items, &total, &createdAt,
		&o.PrintStatus.Printed, &printedAt, &printedBy, &o.PrintStatus.Attempts, &lastAttempt, &errText,
	); err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("decode items of %s: %w", o.ID, err)
	}
	money, err := model.NewMoney(total)
	if err != nil {
		return model.Order{}, fmt.Errorf("decode total of %s: %w", o.ID, err)
	}
	o.Total = money
	o.Status = model.OrderStatus(status)
	o.CreatedAt = fromMillis(createdAt)
	o.PrintStatus.PrintedAt = timePtr(printedAt)
	o.PrintStatus.PrintedBy = stringPtr(printedBy)
	o.PrintStatus.LastAttempt = timePtr(lastAttempt)
	o.PrintStatus.Error = stringPtr(errText)
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// RecordPrintAttempt updates the print status in one statement. attempts is
// incremented by SQLite and printed never goes back to false.
func (s *Store) RecordPrintAttempt(ctx context.Context, orderID string, a model.PrintAttempt) (model.PrintStatus, error) {
	at := toMillis(a.At)
	var errText sql.NullString
	if !a.Success {
		errText = sql.NullString{String: a.Error, Valid: true}
	}

	var (
		ps                     model.PrintStatus
		printedAt, lastAttempt sql.NullInt64
		printedBy, storedErr   sql.NullString
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`UPDATE orders SET
		   attempts = attempts + 1,
		   last_attempt = ?1,
		   printed = CASE WHEN ?2 THEN 1 ELSE printed END,
		   printed_at = CASE WHEN ?2 THEN ?1 ELSE printed_at END,
		   printed_by = CASE WHEN ?2 THEN ?3 ELSE printed_by END,
		   error = ?4
		 WHERE id = ?5
		 RETURNING printed, printed_at, printed_by, attempts, last_attempt, error`,
		at, a.Success, a.StationID, errText, orderID,
	).Scan(&ps.Printed, &printedAt, &printedBy, &ps.Attempts, &lastAttempt, &storedErr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PrintStatus{}, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	if err != nil {
		return model.PrintStatus{}, fmt.Errorf("record print attempt: %w", err)
	}
	ps.PrintedAt = timePtr(printedAt)
	ps.PrintedBy = stringPtr(printedBy)
	ps.LastAttempt = timePtr(lastAttempt)
	ps.Error = stringPtr(storedErr)
	return ps, nil
}

// Subscribe delivers the station's orders as added, then polls the change log.
func (s *Store) Subscribe(ctx context.Context, stationID string, fn func(model.OrderChange)) error {
	snapshot, cursor, err := s.snapshot(ctx, stationID)
	if err != nil {
		return err
	}
	for _, o := range snapshot {
		fn(model.OrderChange{Type: model.ChangeAdded, Order: o})
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		changes, next, err := s.changesSince(ctx, stationID, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		cursor = next
		for _, c := range changes {
			fn(c)
		}
	}
}

func (s *Store) snapshot(ctx context.Context, stationID string) ([]model.Order, int64, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var cursor int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM order_changes`).Scan(&cursor); err != nil {
		return nil, 0, fmt.Errorf("read change cursor: %w", err)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE station = ? ORDER BY created_at, id`, stationID)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, cursor, tx.Commit()
}

type changeRow struct {
	seq     int64
	orderID string
	station string
	typ     model.ChangeType
}

func (s *Store) changesSince(ctx context.Context, stationID string, cursor int64) ([]model.OrderChange, int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seq, order_id, station, change_type FROM order_changes
		 WHERE seq > ? AND station = ? ORDER BY seq`, cursor, stationID)
	if err != nil {
		return nil, cursor, fmt.Errorf("query changes: %w", err)
	}
	var pending []changeRow
	for rows.Next() {
		var c changeRow
		var typ string
		if err := rows.Scan(&c.seq, &c.orderID, &c.station, &typ); err != nil {
			rows.Close()
			return nil, cursor, fmt.Errorf("scan change: %w", err)
		}
		c.typ = model.ChangeType(typ)
		pending = append(pending, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, cursor, fmt.Errorf("iterate changes: %w", err)
	}
	rows.Close()

	var out []model.OrderChange
	for _, c := range pending {
		cursor = c.seq
		if c.typ == model.ChangeRemoved {
			out = append(out, model.OrderChange{Type: c.typ, Order: model.Order{ID: c.orderID, Station: c.station}})
			continue
		}
		o, err := s.GetOrder(ctx, c.orderID)
		if errors.Is(err, store.ErrNotFound) {
			// deleted after this change; its removal follows in the log
			continue
		}
		if err != nil {
			return nil, cursor, err
		}
		out = append(out, model.OrderChange{Type: c.typ, Order: o})
	}
	return out, cursor, nil
}

func (s *Store) GetStation(ctx context.Context, id string) (model.Station, error) {
	var (
		st            model.Station
		lastPing      int64
		lastPrintedAt sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, printer_name, online, last_ping, temp_dir, total_printed, today_printed, last_printed_at
		 FROM stations WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &st.PrinterName, &st.Online, &lastPing, &st.TempDir,
		&st.Stats.TotalPrinted, &st.Stats.TodayPrinted, &lastPrintedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Station{}, fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Station{}, fmt.Errorf("get station: %w", err)
	}
	st.LastPing = fromMillis(lastPing)
	st.Stats.LastPrintedAt = timePtr(lastPrintedAt)
	return st, nil
}

func (s *Store) UpsertStation(ctx context.Context, st model.Station) error {
	if strings.TrimSpace(st.ID) == "" {
		return fmt.Errorf("station id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO stations (
		   id, name, printer_name, online, last_ping, temp_dir, total_printed, today_printed, last_printed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   printer_name = excluded.printer_name,
		   online = excluded.online,
		   last_ping = excluded.last_ping,
		   temp_dir = excluded.temp_dir,
		   total_printed = excluded.total_printed,
		   today_printed = excluded.today_printed,
		   last_printed_at = excluded.last_printed_at`,
		st.ID, st.Name, st.PrinterName, st.Online, toMillis(st.LastPing), st.TempDir,
		st.Stats.TotalPrinted, st.Stats.TodayPrinted, nullMillis(st.Stats.LastPrintedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert station: %w", err)
	}
	return nil
}

func (s *Store) Heartbeat(ctx context.Context, id string, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE stations SET online = 1, last_ping = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return requireRow(res, "station", id)
}

func (s *Store) SetOffline(ctx context.Context, id string, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE stations SET online = 0, last_ping = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	return requireRow(res, "station", id)
}

// IncrementPrinted reads and writes the stats in one transaction so the
// daily counter resets in at's location.
func (s *Store) IncrementPrinted(ctx context.Context, id string, at time.Time) (model.StationStats, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.StationStats{}, fmt.Errorf("begin increment: %w", err)
	}
	defer tx.Rollback()

	var (
		stats         model.StationStats
		lastPrintedAt sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT total_printed, today_printed, last_printed_at FROM stations WHERE id = ?`, id,
	).Scan(&stats.TotalPrinted, &stats.TodayPrinted, &lastPrintedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StationStats{}, fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.StationStats{}, fmt.Errorf("read stats: %w", err)
	}
	stats.LastPrintedAt = timePtr(lastPrintedAt)
	stats = stats.CountPrinted(at)

	if _, err := tx.ExecContext(ctx,
		`UPDATE stations SET total_printed = ?, today_printed = ?, last_printed_at = ? WHERE id = ?`,
		stats.TotalPrinted, stats.TodayPrinted, nullMillis(stats.LastPrintedAt), id,
	); err != nil {
		return model.StationStats{}, fmt.Errorf("write stats: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.StationStats{}, fmt.Errorf("commit stats: %w", err)
	}
	return stats, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
