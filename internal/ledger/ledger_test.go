package ledger

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestRegisterAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RegisterRun(ctx, "run-a", "/videos/a.mp4", "/runs/a", "uninitialized"); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	if err := store.RegisterRun(ctx, "run-b", "/videos/b.mp4", "/runs/b", "uninitialized"); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	if err := store.SetState(ctx, "run-a", "exported", ""); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-a" {
		t.Errorf("most recently updated run = %s, want run-a", runs[0].RunID)
	}

	run, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.State != "exported" || run.SourcePath != "/videos/a.mp4" {
		t.Errorf("run = %+v", run)
	}
}

func TestRegisterRunIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RegisterRun(ctx, "run-a", "/videos/a.mp4", "/runs/a", "uninitialized"); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	if err := store.RegisterRun(ctx, "run-a", "/videos/a.mp4", "/runs/a", "planned"); err != nil {
		t.Fatalf("re-RegisterRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].State != "planned" {
		t.Errorf("state = %s, want refreshed to planned", runs[0].State)
	}
}

func TestStageHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RegisterRun(ctx, "run-a", "/videos/a.mp4", "/runs/a", "uninitialized"); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	for _, event := range []struct{ stage, outcome, detail string }{
		{"plan", "completed", ""},
		{"scenes", "completed", ""},
		{"depth", "failed", "backend unreachable"},
	} {
		if err := store.AppendStage(ctx, "run-a", event.stage, event.outcome, event.detail); err != nil {
			t.Fatalf("AppendStage: %v", err)
		}
	}

	events, err := store.StageHistory(ctx, "run-a")
	if err != nil {
		t.Fatalf("StageHistory: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[2].Stage != "depth" || events[2].Outcome != "failed" || events[2].Detail != "backend unreachable" {
		t.Errorf("events[2] = %+v", events[2])
	}
}

func TestSchemaReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.RegisterRun(context.Background(), "run-a", "/v.mp4", "/runs/a", "planned"); err != nil {
		t.Fatalf("RegisterRun: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("len(runs) = %d after reopen, want 1", len(runs))
	}
}
