package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ctmflow/internal/store"
	"github.com/roach88/ctmflow/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request() Request {
	return Request{
		Document:    []byte(`{"LBA_DEMGEN_VB":{"Type":"Folder"}}`),
		Folder:      "LBA_DEMGEN_VB",
		PlanHash:    "c436c70c",
		Environment: "saas_dev",
	}
}

// TestDeployer_BuildThenDeploy verifies the happy path and the ledger row.
func TestDeployer_BuildThenDeploy(t *testing.T) {
	s := setupTestStore(t)
	eng := &testutil.RecordingEngine{}
	d := NewDeployer(eng, s, NewFixedGenerator("run-1"), discardLogger())

	res, err := d.Deploy(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, store.StatusDeployed, res.Status)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{"build", "deploy"}, eng.Calls())
	assert.Equal(t, request().Document, eng.LastBuild())

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusDeployed, run.Status)
	assert.Equal(t, "c436c70c", run.PlanHash)
	assert.Equal(t, string(request().Document), run.Document)
}

// TestDeployer_SkipsDeployedHash verifies an identical plan is not
// redeployed to the same folder.
func TestDeployer_SkipsDeployedHash(t *testing.T) {
	s := setupTestStore(t)
	eng := &testutil.RecordingEngine{}
	d := NewDeployer(eng, s, NewFixedGenerator("run-1", "run-2"), discardLogger())
	ctx := context.Background()

	_, err := d.Deploy(ctx, request())
	require.NoError(t, err)

	res, err := d.Deploy(ctx, request())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "run-1", res.Previous)
	assert.Empty(t, res.RunID)
	assert.Equal(t, []string{"build", "deploy"}, eng.Calls())

	req := request()
	req.Force = true
	res, err = d.Deploy(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, "run-2", res.RunID)
	assert.Equal(t, []string{"build", "deploy", "build", "deploy"}, eng.Calls())
}

// TestDeployer_BuildFailureStops verifies a rejected build never deploys
// and the engine messages are recorded verbatim.
func TestDeployer_BuildFailureStops(t *testing.T) {
	s := setupTestStore(t)
	eng := &testutil.RecordingEngine{
		BuildErr: &Error{Code: ErrCodeBuild, Messages: []string{"Job zzt-A: Host is missing"}},
	}
	d := NewDeployer(eng, s, NewFixedGenerator("run-1"), discardLogger())

	res, err := d.Deploy(context.Background(), request())
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.Equal(t, store.StatusFailed, res.Status)
	assert.Equal(t, []string{"build"}, eng.Calls())

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
	assert.Equal(t, []string{"Job zzt-A: Host is missing"}, run.Errors)
}

// TestDeployer_DeployFailure verifies a deploy rejection is recorded and
// does not count as deployed.
func TestDeployer_DeployFailure(t *testing.T) {
	s := setupTestStore(t)
	eng := &testutil.RecordingEngine{
		DeployErr: &Error{Code: ErrCodeDeploy, Messages: []string{"folder locked"}},
	}
	d := NewDeployer(eng, s, NewFixedGenerator("run-1"), discardLogger())
	ctx := context.Background()

	_, err := d.Deploy(ctx, request())
	require.Error(t, err)
	assert.True(t, IsDeployError(err))

	_, ok, err := s.LastDeployed(ctx, "LBA_DEMGEN_VB", "c436c70c")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestDeployer_BuildOnly verifies build-only runs stop at "built" and
// ignore the already-deployed check.
func TestDeployer_BuildOnly(t *testing.T) {
	s := setupTestStore(t)
	eng := &testutil.RecordingEngine{}
	d := NewDeployer(eng, s, NewFixedGenerator("run-1", "run-2"), discardLogger())
	ctx := context.Background()

	_, err := d.Deploy(ctx, request())
	require.NoError(t, err)

	req := request()
	req.BuildOnly = true
	res, err := d.Deploy(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, store.StatusBuilt, res.Status)
	assert.Equal(t, []string{"build", "deploy", "build"}, eng.Calls())
}

// TestDeployer_NoLedger verifies deploys work without recording.
func TestDeployer_NoLedger(t *testing.T) {
	eng := &testutil.RecordingEngine{}
	d := NewDeployer(eng, nil, NewFixedGenerator("run-1", "run-2"), discardLogger())

	for i := 0; i < 2; i++ {
		res, err := d.Deploy(context.Background(), request())
		require.NoError(t, err)
		assert.False(t, res.Skipped)
	}
	assert.Len(t, eng.Calls(), 4)
}

// TestDeployer_NoEngine verifies a missing engine is reported.
func TestDeployer_NoEngine(t *testing.T) {
	d := NewDeployer(nil, nil, nil, nil)
	_, err := d.Deploy(context.Background(), request())
	assert.Error(t, err)
}
