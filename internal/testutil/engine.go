package testutil

import (
	"context"
	"sync"
)

// RecordingEngine is an in-memory orchestration engine. It records every
// document it receives and fails with BuildErr or DeployErr when set.
//
// Thread-safety: RecordingEngine is safe for concurrent use via internal mutex.
type RecordingEngine struct {
	BuildErr  error
	DeployErr error

	mu     sync.Mutex
	calls  []string
	builds [][]byte
}

// Build records doc and returns BuildErr.
func (e *RecordingEngine) Build(_ context.Context, doc []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "build")
	e.builds = append(e.builds, append([]byte(nil), doc...))
	return e.BuildErr
}

// Deploy records the call and returns DeployErr.
func (e *RecordingEngine) Deploy(_ context.Context, _ []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "deploy")
	return e.DeployErr
}

// Calls returns the engine verbs in call order.
func (e *RecordingEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// LastBuild returns the most recently built document, or nil.
func (e *RecordingEngine) LastBuild() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.builds) == 0 {
		return nil
	}
	return e.builds[len(e.builds)-1]
}
