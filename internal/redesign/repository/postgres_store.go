package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/engine"
)

var _ engine.Store = (*PostgresStore)(nil)

const createProjectsTable = `
	CREATE TABLE IF NOT EXISTS redesign_projects (
		id            TEXT PRIMARY KEY,
		phase         TEXT NOT NULL,
		state         JSONB NOT NULL,
		wait_deadline TIMESTAMPTZ,
		version       BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS redesign_projects_wait_deadline_idx
		ON redesign_projects (wait_deadline) WHERE wait_deadline IS NOT NULL;
`

// PostgresStore handles PostgreSQL persistence for projects. The full
// aggregate lives in a JSONB column; phase and deadline are copied out for
// indexing.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the projects table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createProjectsTable); err != nil {
		return fmt.Errorf("failed to migrate projects table: %w", err)
	}
	return nil
}

// Create inserts a new project
func (s *PostgresStore) Create(ctx context.Context, p *domain.Project) error {
	p.Version = 1
	state, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO redesign_projects (id, phase, state, wait_deadline, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, string(p.Phase), state, nullTime(p.WaitDeadline), p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	if n == 0 {
		return domain.ErrProjectExists
	}
	return nil
}

// Get retrieves a project by its ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM redesign_projects WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return decodeProject(state)
}

// Update applies fn inside a transaction holding the row lock.
func (s *PostgresStore) Update(ctx context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var state []byte
	err = tx.QueryRowContext(ctx, `SELECT state FROM redesign_projects WHERE id = $1 FOR UPDATE`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}

	p, err := decodeProject(state)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}

	p.Version++
	next, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE redesign_projects
		SET phase = $2, state = $3, wait_deadline = $4, version = $5, updated_at = $6
		WHERE id = $1
	`, id, string(p.Phase), next, nullTime(p.WaitDeadline), p.Version, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project: %w", err)
	}
	return p, nil
}

// Delete removes a project
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM redesign_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// ListActive returns every stored project id, oldest first.
func (s *PostgresStore) ListActive(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM redesign_projects ORDER BY created_at`)
}

// DueDeadlines returns ids whose deadline is at or before now.
func (s *PostgresStore) DueDeadlines(ctx context.Context, now time.Time) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM redesign_projects
		WHERE wait_deadline IS NOT NULL AND wait_deadline <= $1
		ORDER BY wait_deadline
	`, now)
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return ids, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
