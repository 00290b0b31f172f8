package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/ctmflow/internal/store"
)

// Ledger records deploy attempts. Implemented by *store.Store.
type Ledger interface {
	CreateRun(ctx context.Context, run store.Run) (store.Run, error)
	UpdateRun(ctx context.Context, id string, status store.RunStatus, msgs []string) error
	LastDeployed(ctx context.Context, folder, planHash string) (store.Run, bool, error)
}

// Request is one deploy of a rendered plan document.
type Request struct {
	Document    []byte
	Folder      string
	PlanHash    string
	Environment string

	// Force deploys even when PlanHash was already deployed to Folder.
	Force bool

	// BuildOnly stops after a successful build.
	BuildOnly bool
}

// Result describes what a deploy did.
type Result struct {
	RunID  string
	Status store.RunStatus

	// Skipped is true when the plan hash was already deployed; Previous
	// then names the run that deployed it.
	Skipped  bool
	Previous string
}

// Deployer builds then deploys documents through an Engine, recording
// each attempt in the ledger.
type Deployer struct {
	engine Engine
	ledger Ledger
	ids    RunIDGenerator
	logger *slog.Logger
}

// NewDeployer creates a Deployer. A nil ledger disables recording and
// the already-deployed check. Nil ids uses UUIDv7Generator; nil logger
// uses slog.Default().
func NewDeployer(e Engine, ledger Ledger, ids RunIDGenerator, logger *slog.Logger) *Deployer {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{engine: e, ledger: ledger, ids: ids, logger: logger}
}

// Deploy runs build then deploy. A build failure stops before deploy.
// Engine failures are returned as *Error after being recorded; the
// Result is still returned so callers can report the run id.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	if d.engine == nil {
		return nil, errors.New("deploy: no engine configured")
	}

	if d.ledger != nil && !req.Force && !req.BuildOnly {
		prev, ok, err := d.ledger.LastDeployed(ctx, req.Folder, req.PlanHash)
		if err != nil {
			return nil, fmt.Errorf("deploy: %w", err)
		}
		if ok {
			d.logger.Info("plan already deployed, skipping",
				"folder", req.Folder,
				"plan_hash", req.PlanHash,
				"run", prev.ID)
			return &Result{Status: store.StatusDeployed, Skipped: true, Previous: prev.ID}, nil
		}
	}

	res := &Result{RunID: d.ids.Generate(), Status: store.StatusPending}
	if d.ledger != nil {
		_, err := d.ledger.CreateRun(ctx, store.Run{
			ID:          res.RunID,
			Folder:      req.Folder,
			Environment: req.Environment,
			PlanHash:    req.PlanHash,
			Document:    string(req.Document),
		})
		if err != nil {
			return nil, fmt.Errorf("deploy: %w", err)
		}
	}

	if err := d.engine.Build(ctx, req.Document); err != nil {
		return res, d.fail(ctx, res, err)
	}
	if err := d.record(ctx, res, store.StatusBuilt, nil); err != nil {
		return res, err
	}
	d.logger.Info("plan built", "folder", req.Folder, "run", res.RunID)
	if req.BuildOnly {
		return res, nil
	}

	if err := d.engine.Deploy(ctx, req.Document); err != nil {
		return res, d.fail(ctx, res, err)
	}
	if err := d.record(ctx, res, store.StatusDeployed, nil); err != nil {
		return res, err
	}
	d.logger.Info("plan deployed", "folder", req.Folder, "plan_hash", req.PlanHash, "run", res.RunID)
	return res, nil
}

// fail records the engine failure and returns the original error.
func (d *Deployer) fail(ctx context.Context, res *Result, engineErr error) error {
	d.logger.Error("engine rejected plan", "run", res.RunID, "error", engineErr)
	if err := d.record(ctx, res, store.StatusFailed, Messages(engineErr)); err != nil {
		return errors.Join(engineErr, err)
	}
	return engineErr
}

func (d *Deployer) record(ctx context.Context, res *Result, status store.RunStatus, msgs []string) error {
	res.Status = status
	if d.ledger == nil {
		return nil
	}
	if err := d.ledger.UpdateRun(ctx, res.RunID, status, msgs); err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	return nil
}
