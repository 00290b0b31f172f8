package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	// StatusPending means the run was recorded and nothing ran yet.
	StatusPending RunStatus = "pending"

	// StatusBuilt means the engine accepted the document in a build.
	StatusBuilt RunStatus = "built"

	// StatusDeployed means the engine deployed the document.
	StatusDeployed RunStatus = "deployed"

	// StatusFailed means the engine rejected the document.
	StatusFailed RunStatus = "failed"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded deploy attempt.
type Run struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Folder      string    `json:"folder"`
	Environment string    `json:"environment,omitempty"`
	PlanHash    string    `json:"plan_hash"`
	Document    string    `json:"-"`
	Status      RunStatus `json:"status"`
	Errors      []string  `json:"errors"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRun inserts a pending run and returns it with seq and created_at set.
// The seq is one past the current maximum, so runs order by insertion.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, errors.New("create run: id is required")
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	errsJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	run.CreatedAt = s.now().UTC().Truncate(time.Second)

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO runs
		(id, seq, folder, environment, plan_hash, document, status, errors, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq
	`,
		run.ID,
		run.Folder,
		run.Environment,
		run.PlanHash,
		run.Document,
		string(run.Status),
		errsJSON,
		run.CreatedAt.Format(time.RFC3339),
	).Scan(&run.Seq)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return run, nil
}

// UpdateRun sets the status and engine messages of a run.
func (s *Store) UpdateRun(ctx context.Context, id string, status RunStatus, msgs []string) error {
	errsJSON, err := marshalErrors(msgs)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, errors = ? WHERE id = ?
	`, string(status), errsJSON, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, folder, environment, plan_hash, document, status, errors, created_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// LastDeployed returns the most recent successful deploy of planHash to
// folder. The bool is false when the hash was never deployed there.
func (s *Store) LastDeployed(ctx context.Context, folder, planHash string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, folder, environment, plan_hash, document, status, errors, created_at
		FROM runs
		WHERE folder = ? AND plan_hash = ? AND status = ?
		ORDER BY seq DESC
		LIMIT 1
	`, folder, planHash, string(StatusDeployed))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("last deployed: %w", err)
	}
	return run, true, nil
}

// History returns the latest limit runs, oldest first. An empty folder
// matches every folder; limit <= 0 returns all runs.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) History(ctx context.Context, folder string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, folder, environment, plan_hash, document, status, errors, created_at
		FROM (
			SELECT * FROM runs
			WHERE ? = '' OR folder = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, folder, folder, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		status    string
		errsJSON  string
		createdAt string
	)
	if err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Folder,
		&run.Environment,
		&run.PlanHash,
		&run.Document,
		&status,
		&errsJSON,
		&createdAt,
	); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)

	msgs, err := unmarshalErrors(errsJSON)
	if err != nil {
		return Run{}, err
	}
	run.Errors = msgs

	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	return run, nil
}
