package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed postgres_schema.sql
var postgresSchema string

// Querier represents the minimal database operations used by PostgresStore.
// Both *pgxpool.Pool and pgxmock pools satisfy this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps plans in PostgreSQL
type PostgresStore struct {
	db    Querier
	close func()
	now   func() time.Time
}

var _ PlanStore = (*PostgresStore)(nil)

// OpenPostgres connects a pool to dsn and ensures the schema
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := NewPostgresStore(pool)
	s.close = pool.Close
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool or connection
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// EnsureSchema creates tables if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the pool when the store opened it
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, plan Plan) (Plan, error) {
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}

	now := s.now().UTC()
	saved := Plan{
		ID:               plan.ID,
		Name:             plan.Name,
		AccommodationIDs: nonNil(plan.AccommodationIDs),
		UpdatedAt:        now,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO plans (id, name, accommodation_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			accommodation_ids = EXCLUDED.accommodation_ids,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`,
		saved.ID, saved.Name, saved.AccommodationIDs, now).Scan(&saved.CreatedAt)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	return saved, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Plan, error) {
	var plan Plan
	err := s.db.QueryRow(ctx, `
		SELECT id, name, accommodation_ids, created_at, updated_at
		FROM plans WHERE id = $1`, id).
		Scan(&plan.ID, &plan.Name, &plan.AccommodationIDs, &plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	return plan, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, accommodation_ids, created_at, updated_at
		FROM plans ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var plan Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.AccommodationIDs, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
