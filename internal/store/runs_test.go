package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateRun_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, createTestRun("run-1", "LBA_DEMGEN_VB", "h1"))
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	second, err := s.CreateRun(ctx, createTestRun("run-2", "OTHER", "h2"))
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Status != StatusPending {
		t.Errorf("status = %q, want %q", first.Status, StatusPending)
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", first.CreatedAt, want)
	}
	if first.Errors == nil {
		t.Error("errors is nil, want empty slice")
	}
}

func TestCreateRun_RequiresID(t *testing.T) {
	s := createTestStore(t)

	_, err := s.CreateRun(context.Background(), Run{Folder: "F", PlanHash: "h"})
	if err == nil {
		t.Error("expected error for run without id")
	}
}

func TestCreateRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRun(ctx, createTestRun("run-1", "F", "h")); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	if _, err := s.CreateRun(ctx, createTestRun("run-1", "F", "h")); err == nil {
		t.Error("expected error for duplicate run id")
	}
}

func TestUpdateRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRun(ctx, createTestRun("run-1", "F", "h")); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	msgs := []string{"Folder F: unknown ControlmServer", "Job zzt-A: <Host> missing"}
	if err := s.UpdateRun(ctx, "run-1", StatusFailed, msgs); err != nil {
		t.Fatalf("UpdateRun() failed: %v", err)
	}

	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if run.Status != StatusFailed {
		t.Errorf("status = %q, want %q", run.Status, StatusFailed)
	}
	if len(run.Errors) != 2 || run.Errors[1] != msgs[1] {
		t.Errorf("errors = %v, want %v", run.Errors, msgs)
	}
	if run.Document != `{"F":{"Type":"Folder"}}` {
		t.Errorf("document = %s", run.Document)
	}
	if run.Environment != "saas_dev" {
		t.Errorf("environment = %q, want saas_dev", run.Environment)
	}
}

func TestUpdateRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.UpdateRun(context.Background(), "missing", StatusDeployed, nil)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("UpdateRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestLastDeployed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if _, err := s.CreateRun(ctx, createTestRun(id, "F", "h")); err != nil {
			t.Fatalf("CreateRun(%s) failed: %v", id, err)
		}
	}

	_, ok, err := s.LastDeployed(ctx, "F", "h")
	if err != nil {
		t.Fatalf("LastDeployed() failed: %v", err)
	}
	if ok {
		t.Error("pending runs must not count as deployed")
	}

	if err := s.UpdateRun(ctx, "run-1", StatusDeployed, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRun(ctx, "run-2", StatusDeployed, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRun(ctx, "run-3", StatusFailed, []string{"boom"}); err != nil {
		t.Fatal(err)
	}

	run, ok, err := s.LastDeployed(ctx, "F", "h")
	if err != nil {
		t.Fatalf("LastDeployed() failed: %v", err)
	}
	if !ok || run.ID != "run-2" {
		t.Errorf("LastDeployed() = %q, %v, want run-2, true", run.ID, ok)
	}

	if _, ok, _ := s.LastDeployed(ctx, "F", "other-hash"); ok {
		t.Error("different plan hash must not match")
	}
	if _, ok, _ := s.LastDeployed(ctx, "G", "h"); ok {
		t.Error("different folder must not match")
	}
}

func TestHistory_OrderAndLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs := []Run{
		createTestRun("run-a", "F", "h1"),
		createTestRun("run-b", "G", "h2"),
		createTestRun("run-c", "F", "h3"),
		createTestRun("run-d", "F", "h4"),
	}
	for _, r := range runs {
		if _, err := s.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun(%s) failed: %v", r.ID, err)
		}
	}

	all, err := s.History(ctx, "", 0)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if got := ids(all); !equal(got, []string{"run-a", "run-b", "run-c", "run-d"}) {
		t.Errorf("History(all) = %v", got)
	}

	folder, err := s.History(ctx, "F", 2)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if got := ids(folder); !equal(got, []string{"run-c", "run-d"}) {
		t.Errorf("History(F, 2) = %v, want latest two oldest first", got)
	}
}

func TestHistory_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.History(context.Background(), "F", 10)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if runs == nil {
		t.Error("runs is nil, want empty slice")
	}
}

func ids(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWithClock_StampsRuns(t *testing.T) {
	want := time.Date(2027, 6, 15, 12, 0, 0, 0, time.UTC)
	s, err := Open(":memory:", WithClock(func() time.Time { return want.Add(300 * time.Millisecond) }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	run, err := s.CreateRun(ctx, createTestRun("run-1", "F", "h"))
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	if !run.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", run.CreatedAt, want)
	}
}
