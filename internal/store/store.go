package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/facecheck/internal/eval"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrRunNotFound is returned when no stored run has the requested ID.
var ErrRunNotFound = errors.New("evaluation run not found")

// Run is a finished evaluation as persisted in the database.
type Run struct {
	ID          uuid.UUID
	Name        string
	Detector    string
	PositiveDir string
	NegativeDir string
	CorpusID    string
	Report      eval.Report
	CreatedAt   time.Time
}

// Store manages the PostgreSQL connection holding evaluation history.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the runs table if it doesn't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS evaluation_runs (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			detector TEXT NOT NULL,
			positive_dir TEXT NOT NULL,
			negative_dir TEXT NOT NULL,
			corpus_id TEXT NOT NULL,
			tp INT NOT NULL,
			fn INT NOT NULL,
			tn INT NOT NULL,
			fp INT NOT NULL,
			unreadable INT NOT NULL DEFAULT 0,
			accuracy DOUBLE PRECISION NOT NULL,
			precision_score DOUBLE PRECISION NOT NULL,
			recall DOUBLE PRECISION NOT NULL,
			f1 DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS evaluation_runs_corpus_id_idx ON evaluation_runs (corpus_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SaveRun inserts a finished run. A zero ID is replaced with a fresh UUID,
// and the stored ID is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	r := run.Report

	_, err := s.conn.Exec(ctx, `
		INSERT INTO evaluation_runs (
			id, name, detector, positive_dir, negative_dir, corpus_id,
			tp, fn, tn, fp, unreadable,
			accuracy, precision_score, recall, f1
		)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, run.ID.String(), run.Name, run.Detector, run.PositiveDir, run.NegativeDir, run.CorpusID,
		r.TP, r.FN, r.TN, r.FP, r.Unreadable,
		r.Accuracy, r.Precision, r.Recall, r.F1)
	if err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

const selectRun = `
	SELECT id::text, name, detector, positive_dir, negative_dir, corpus_id,
		tp, fn, tn, fp, unreadable,
		accuracy, precision_score, recall, f1, created_at
	FROM evaluation_runs`

func scanRun(row pgx.Row) (Run, error) {
	var (
		run Run
		id  string
	)
	r := &run.Report
	err := row.Scan(&id, &run.Name, &run.Detector, &run.PositiveDir, &run.NegativeDir, &run.CorpusID,
		&r.TP, &r.FN, &r.TN, &r.FP, &r.Unreadable,
		&r.Accuracy, &r.Precision, &r.Recall, &r.F1, &run.CreatedAt)
	if err != nil {
		return Run{}, err
	}
	run.ID, err = uuid.Parse(id)
	return run, err
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.conn.Query(ctx, selectRun+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a single run by ID.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	run, err := scanRun(s.conn.QueryRow(ctx, selectRun+` WHERE id = $1::uuid`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// LabelRun updates the display name of a stored run.
func (s *Store) LabelRun(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.conn.Exec(ctx, "UPDATE evaluation_runs SET name = $1 WHERE id = $2::uuid", name, id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS evaluation_runs CASCADE;`)
	return err
}
