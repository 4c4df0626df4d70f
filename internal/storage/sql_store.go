package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/skill-bright/cde-huddle-sub001/internal/aggregator"
	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Timestamps are stored as fixed-width UTC text so they order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLStore is a Repository on database/sql. It speaks SQLite
// (modernc.org/sqlite), PostgreSQL (lib/pq) and MySQL (go-sql-driver/mysql).
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

var _ Repository = (*SQLStore)(nil)

// Open connects to the database and applies the schema.
func Open(driver, dsn string) (*SQLStore, error) {
	db, err := openDB(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection also keeps
		// :memory: databases alive across calls.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to apply schema: %w", err)
	}
	return s, nil
}

func openDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
				return nil, fmt.Errorf("storage: failed to create data directory: %w", err)
			}
		}
	case DriverPostgres:
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: invalid mysql dsn: %w", err)
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("storage: create connector: %w", err)
		}
		return sql.OpenDB(connector), nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q (supported: sqlite, postgres, mysql)", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}
	return db, nil
}

func (s *SQLStore) migrate() error {
	if s.driver != DriverMySQL {
		_, err := s.db.Exec(Schema)
		return err
	}
	for _, stmt := range MySQLSchema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// upsert renders the conflict clause that overwrites columns when a row
// with the same key columns already exists.
func (s *SQLStore) upsert(keys []string, columns ...string) string {
	sets := make([]string, len(columns))
	if s.driver == DriverMySQL {
		for i, c := range columns {
			sets[i] = c + " = VALUES(" + c + ")"
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range columns {
		sets[i] = c + " = excluded." + c
	}
	return "ON CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// entryID is stable per date so repeated loads return the same entry IDs.
func entryID(date string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("entry:"+date)).String()
}

func (s *SQLStore) SaveUpdate(ctx context.Context, r model.UpdateRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	query := s.rebind(`
		INSERT INTO updates (id, person_name, role, yesterday, today, blockers, update_date, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		` + s.upsert([]string{"person_name", "update_date"},
		"role", "yesterday", "today", "blockers", "submitted_at"))

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), r.PersonName, r.Role, r.Yesterday, r.Today, r.Blockers,
		calendar.DateOf(r.Timestamp), formatTime(r.Timestamp))
	if err != nil {
		return fmt.Errorf("storage: failed to save update for %s: %w", r.PersonName, err)
	}
	return nil
}

func (s *SQLStore) GetWeeklyReport(ctx context.Context, weekStart, weekEnd string) (*model.WeeklyReport, error) {
	query := s.rebind(`
		SELECT person_name, role, yesterday, today, blockers, update_date, submitted_at
		FROM updates
		WHERE update_date >= ? AND update_date <= ?
		ORDER BY update_date, submitted_at`)

	entries, err := s.queryEntries(ctx, query, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	report, err := aggregator.FromEntries(entries, weekStart, weekEnd, model.ReportSummary{})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return report, nil
}

func (s *SQLStore) GetHistory(ctx context.Context, limit int) ([]model.Entry, error) {
	query := s.rebind(`
		SELECT person_name, role, yesterday, today, blockers, update_date, submitted_at
		FROM updates
		WHERE update_date IN (
			SELECT update_date FROM (
				SELECT DISTINCT update_date FROM updates ORDER BY update_date DESC LIMIT ?
			) recent
		)
		ORDER BY update_date DESC, submitted_at`)

	return s.queryEntries(ctx, query, limit)
}

// queryEntries groups rows into entries in the order rows arrive; rows must
// be sorted by date.
func (s *SQLStore) queryEntries(ctx context.Context, query string, args ...any) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to query updates: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var r model.UpdateRecord
		var date, submitted string
		if err := rows.Scan(&r.PersonName, &r.Role, &r.Yesterday, &r.Today, &r.Blockers, &date, &submitted); err != nil {
			return nil, fmt.Errorf("storage: failed to scan update: %w", err)
		}
		if r.Timestamp, err = parseTime(submitted); err != nil {
			return nil, fmt.Errorf("storage: bad submitted_at %q: %w", submitted, err)
		}

		if n := len(entries); n == 0 || entries[n-1].Date != date {
			entries = append(entries, model.Entry{ID: entryID(date), Date: date, CreatedAt: r.Timestamp})
		}
		last := &entries[len(entries)-1]
		last.Records = append(last.Records, r)
		if r.Timestamp.Before(last.CreatedAt) {
			last.CreatedAt = r.Timestamp
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: failed to read updates: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) SaveReportSnapshot(ctx context.Context, snap model.ReportSnapshot) error {
	if snap.Status == "" {
		snap.Status = model.StatusPending
	}
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	now := formatTime(s.now())

	var data sql.NullString
	if snap.ReportData != nil {
		b, err := json.Marshal(snap.ReportData)
		if err != nil {
			return fmt.Errorf("storage: failed to encode report: %w", err)
		}
		data = sql.NullString{String: string(b), Valid: true}
	}

	query := s.rebind(`
		INSERT INTO report_snapshots
			(id, week_start, week_end, total_updates, unique_members, report_data, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		` + s.upsert([]string{"week_start", "week_end"},
		"total_updates", "unique_members", "report_data", "status", "error", "updated_at"))

	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.WeekStart, snap.WeekEnd, snap.TotalUpdates, snap.UniqueMembers,
		data, string(snap.Status), snap.Error, now, now)
	if err != nil {
		return fmt.Errorf("storage: failed to save snapshot %s..%s: %w", snap.WeekStart, snap.WeekEnd, err)
	}
	return nil
}

const snapshotColumns = `id, week_start, week_end, total_updates, unique_members, report_data, status, error, created_at, updated_at`

func (s *SQLStore) ListReportSnapshots(ctx context.Context, limit int) ([]model.ReportSnapshot, error) {
	query := s.rebind(`SELECT ` + snapshotColumns + ` FROM report_snapshots ORDER BY updated_at DESC, week_start DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.ReportSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: failed to read snapshots: %w", err)
	}
	return out, nil
}

// GetReportSnapshot loads the snapshot for a week pair.
func (s *SQLStore) GetReportSnapshot(ctx context.Context, weekStart, weekEnd string) (model.ReportSnapshot, error) {
	query := s.rebind(`SELECT ` + snapshotColumns + ` FROM report_snapshots WHERE week_start = ? AND week_end = ?`)
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, weekStart, weekEnd))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReportSnapshot{}, ErrNotFound
	}
	return snap, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (model.ReportSnapshot, error) {
	var snap model.ReportSnapshot
	var data sql.NullString
	var status, created, updated string
	err := row.Scan(&snap.ID, &snap.WeekStart, &snap.WeekEnd, &snap.TotalUpdates, &snap.UniqueMembers,
		&data, &status, &snap.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, err
	}
	if err != nil {
		return snap, fmt.Errorf("storage: failed to scan snapshot: %w", err)
	}
	snap.Status = model.SnapshotStatus(status)

	if data.Valid && data.String != "" {
		var report model.WeeklyReport
		if err := json.Unmarshal([]byte(data.String), &report); err != nil {
			return snap, fmt.Errorf("storage: failed to decode report data: %w", err)
		}
		snap.ReportData = &report
	}
	if snap.CreatedAt, err = parseTime(created); err != nil {
		return snap, fmt.Errorf("storage: bad created_at %q: %w", created, err)
	}
	if snap.UpdatedAt, err = parseTime(updated); err != nil {
		return snap, fmt.Errorf("storage: bad updated_at %q: %w", updated, err)
	}
	return snap, nil
}
