// Package pgstore implements store.Store on Postgres via pgx, with schema
// managed by embedded golang-migrate migrations — the same migration
// mechanism the upstream database layer uses, minus the ent-generated ORM
// layer: domain structs are persisted as JSONB columns, queried by task id.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/turbowrap/turbowrap/pkg/checkpoint"
	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/loop"
	"github.com/turbowrap/turbowrap/pkg/report"
	"github.com/turbowrap/turbowrap/pkg/taskqueue"
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds connection pool settings on top of a DSN.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps a *sql.DB opened through the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

// New opens a connection pool against cfg.DSN, pings it, and applies pending
// migrations before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, ferrors.New(ferrors.KindStoreUnavailable, "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ferrors.New(ferrors.KindStoreUnavailable, "ping", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, ferrors.New(ferrors.KindStoreUnavailable, "migrate", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an already-open *sql.DB (e.g. from a testcontainers
// connection string), running migrations against it.
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := runMigrations(db); err != nil {
		return nil, ferrors.New(ferrors.KindStoreUnavailable, "migrate", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "turbowrap", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Do not call m.Close(): it would close the shared *sql.DB passed to
	// postgres.WithInstance above. Close only the source side.
	return sourceDriver.Close()
}

func (s *Store) SaveTask(ctx context.Context, task *taskqueue.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, task.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, payload, priority, enqueued_at, state, processing_started_at, attempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind, payload = EXCLUDED.payload, priority = EXCLUDED.priority,
			state = EXCLUDED.state, processing_started_at = EXCLUDED.processing_started_at,
			attempt = EXCLUDED.attempt
	`, task.ID, string(task.Kind), payload, task.Priority, task.EnqueuedAt, string(task.State),
		nullableTime(task.ProcessingStartedAt), task.Attempt)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, task.ID, err)
	}
	return nil
}

func (s *Store) LoadTask(ctx context.Context, id string) (*taskqueue.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, payload, priority, enqueued_at, state, processing_started_at, attempt
		FROM tasks WHERE id = $1
	`, id)

	var (
		kind, state string
		payload     []byte
		priority    int
		enqueuedAt  time.Time
		processing  sql.NullTime
		attempt     int
	)
	if err := row.Scan(&kind, &payload, &priority, &enqueuedAt, &state, &processing, &attempt); err != nil {
		return nil, ferrors.New(ferrors.KindStoreUnavailable, id, err)
	}

	var decodedPayload any
	if err := json.Unmarshal(payload, &decodedPayload); err != nil {
		return nil, ferrors.New(ferrors.KindStoreUnavailable, id, err)
	}

	task := &taskqueue.Task{
		ID:         id,
		Kind:       taskqueue.Kind(kind),
		Payload:    decodedPayload,
		Priority:   priority,
		EnqueuedAt: enqueuedAt,
		State:      taskqueue.State(state),
		Attempt:    attempt,
	}
	if processing.Valid {
		task.ProcessingStartedAt = processing.Time
	}
	return task, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, cp checkpoint.Checkpoint) error {
	issues, err := json.Marshal(cp.Issues)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, cp.TaskID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (task_id, reviewer_name, completed, issues, satisfaction_score, iterations_used, convergence_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (task_id, reviewer_name) DO UPDATE SET
			completed = EXCLUDED.completed, issues = EXCLUDED.issues,
			satisfaction_score = EXCLUDED.satisfaction_score,
			iterations_used = EXCLUDED.iterations_used,
			convergence_status = EXCLUDED.convergence_status
	`, cp.TaskID, cp.ReviewerName, cp.Completed, issues, cp.SatisfactionScore, cp.IterationsUsed, string(cp.ConvergenceStatus))
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, cp.TaskID, err)
	}
	return nil
}

func (s *Store) LoadCheckpoints(ctx context.Context, taskID string) (map[string]checkpoint.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reviewer_name, completed, issues, satisfaction_score, iterations_used, convergence_status
		FROM checkpoints WHERE task_id = $1
	`, taskID)
	if err != nil {
		return nil, ferrors.New(ferrors.KindStoreUnavailable, taskID, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]checkpoint.Checkpoint)
	for rows.Next() {
		var (
			reviewer, status string
			completed        bool
			issuesRaw        []byte
			score, iters      int
		)
		if err := rows.Scan(&reviewer, &completed, &issuesRaw, &score, &iters, &status); err != nil {
			return nil, ferrors.New(ferrors.KindStoreUnavailable, taskID, err)
		}

		cp := checkpoint.Checkpoint{
			TaskID: taskID, ReviewerName: reviewer, Completed: completed,
			SatisfactionScore: score, IterationsUsed: iters,
			ConvergenceStatus: loop.Status(status),
		}
		if err := json.Unmarshal(issuesRaw, &cp.Issues); err != nil {
			return nil, ferrors.New(ferrors.KindStoreUnavailable, taskID, err)
		}
		out[reviewer] = cp
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.New(ferrors.KindStoreUnavailable, taskID, err)
	}
	return out, nil
}

func (s *Store) ClearCheckpoints(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE task_id = $1`, taskID)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, taskID, err)
	}
	return nil
}

func (s *Store) SaveFinalReport(ctx context.Context, r report.FinalReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, r.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO final_reports (id, task_id, body) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body
	`, r.ID, r.TaskID, body)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, r.ID, err)
	}
	return nil
}

func (s *Store) LoadFinalReport(ctx context.Context, id string) (report.FinalReport, error) {
	var body []byte
	if err := s.db.QueryRowContext(ctx, `SELECT body FROM final_reports WHERE id = $1`, id).Scan(&body); err != nil {
		return report.FinalReport{}, ferrors.New(ferrors.KindStoreUnavailable, id, err)
	}
	var r report.FinalReport
	if err := json.Unmarshal(body, &r); err != nil {
		return report.FinalReport{}, ferrors.New(ferrors.KindStoreUnavailable, id, err)
	}
	return r, nil
}

func (s *Store) SaveFixReport(ctx context.Context, r report.FixReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, r.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fix_reports (id, task_id, body) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body
	`, r.ID, r.TaskID, body)
	if err != nil {
		return ferrors.New(ferrors.KindStoreUnavailable, r.ID, err)
	}
	return nil
}

func (s *Store) LoadFixReport(ctx context.Context, id string) (report.FixReport, error) {
	var body []byte
	if err := s.db.QueryRowContext(ctx, `SELECT body FROM fix_reports WHERE id = $1`, id).Scan(&body); err != nil {
		return report.FixReport{}, ferrors.New(ferrors.KindStoreUnavailable, id, err)
	}
	var r report.FixReport
	if err := json.Unmarshal(body, &r); err != nil {
		return report.FixReport{}, ferrors.New(ferrors.KindStoreUnavailable, id, err)
	}
	return r, nil
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
