package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteStore keeps plans in a local SQLite file
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex // SQLite allows a single writer
	now     func() time.Time
}

var _ PlanStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{conn: conn, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, plan Plan) (Plan, error) {
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	ids, err := json.Marshal(nonNil(plan.AccommodationIDs))
	if err != nil {
		return Plan{}, fmt.Errorf("failed to encode accommodation ids: %w", err)
	}

	now := s.now().UTC()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO plans (id, name, accommodation_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			accommodation_ids = excluded.accommodation_ids,
			updated_at = excluded.updated_at`,
		plan.ID, plan.Name, string(ids), formatTime(now), formatTime(now))
	if err != nil {
		return Plan{}, fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}

	return s.get(ctx, plan.ID)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Plan, error) {
	return s.get(ctx, id)
}

func (s *SQLiteStore) get(ctx context.Context, id string) (Plan, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, accommodation_ids, created_at, updated_at
		FROM plans WHERE id = ?`, id)

	plan, err := scanSQLitePlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	return plan, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Plan, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, accommodation_ids, created_at, updated_at
		FROM plans ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		plan, err := scanSQLitePlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.conn.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlan(row rowScanner) (Plan, error) {
	var (
		plan              Plan
		ids, created, upd string
	)
	if err := row.Scan(&plan.ID, &plan.Name, &ids, &created, &upd); err != nil {
		return Plan{}, err
	}
	if err := json.Unmarshal([]byte(ids), &plan.AccommodationIDs); err != nil {
		return Plan{}, fmt.Errorf("invalid accommodation ids: %w", err)
	}

	var err error
	if plan.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Plan{}, fmt.Errorf("invalid created_at: %w", err)
	}
	if plan.UpdatedAt, err = time.Parse(time.RFC3339Nano, upd); err != nil {
		return Plan{}, fmt.Errorf("invalid updated_at: %w", err)
	}
	return plan, nil
}

// formatTime uses a fixed-width layout so stored values sort chronologically
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
