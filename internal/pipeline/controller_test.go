package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"parallax/internal/geometry"
	"parallax/internal/metadata"
	"parallax/internal/scenesplit"
	"parallax/internal/testsupport"
)

// completedRunDir lays out a run directory whose every stage artifact exists,
// matching what a finished run leaves behind.
func completedRunDir(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "sample-1700000000")

	touch(t, processedPath(dir))
	writeTimestamps(t, scenesDir(dir), []float64{0})
	touch(t, filepath.Join(scenesDir(dir), scenesplit.SceneFileName(1)))
	touch(t, rgbPath(dir))
	touch(t, depthPath(dir))
	touch(t, filepath.Join(exportDir(dir), RGBFile))

	doc := &metadata.Document{
		RunID:             "11111111-2222-3333-4444-555555555555",
		SourceMP4:         "/videos/sample.mp4",
		CreatedAt:         time.Now().UTC(),
		ResolutionCeiling: 720,
		FPSCeiling:        24,
		MaxSceneSeconds:   45,
		Geometry: &geometry.Plan{
			SourceWidth: 1920, SourceHeight: 1080,
			CropLeft: 2, CropRight: 2,
			RGBWidth: 1916, RGBHeight: 1080,
			DepthWidth: 720, DepthHeight: 406,
		},
		SceneCount:       1,
		SceneTimestamps:  []float64{0},
		SceneMinDepths:   []float64{0.9},
		SceneMaxDepths:   []float64{11.4},
		SceneScreenDists: []float64{2.8},
		SceneDone:        []bool{true},
		Video:            &metadata.StreamProperties{Width: 1916, Height: 1080, FPS: 24, FrameCount: 240},
		Depth:            &metadata.StreamProperties{Width: 1916, Height: 1080, FPS: 24, FrameCount: 240},
		Verified:         true,
	}
	if err := metadata.NewStore(dir).Save(doc); err != nil {
		t.Fatalf("save document: %v", err)
	}
	return dir
}

func artifactTimes(t *testing.T, dir string) map[string]time.Time {
	t.Helper()
	times := make(map[string]time.Time)
	for _, path := range []string{
		processedPath(dir),
		rgbPath(dir),
		depthPath(dir),
		filepath.Join(exportDir(dir), RGBFile),
	} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		times[path] = info.ModTime()
	}
	return times
}

func TestRunIsIdempotentOnCompletedArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	dir := completedRunDir(t, cfg.Paths.OutputRoot)
	before := artifactTimes(t, dir)

	controller, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for pass := 1; pass <= 2; pass++ {
		result, err := controller.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("Run pass %d: %v", pass, err)
		}
		if result.State != StateExported {
			t.Errorf("pass %d state = %s, want exported", pass, result.State)
		}
	}

	after := artifactTimes(t, dir)
	for path, want := range before {
		if got := after[path]; !got.Equal(want) {
			t.Errorf("artifact %s was rewritten", path)
		}
	}
}

func TestRunRefusesLockedDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	dir := completedRunDir(t, cfg.Paths.OutputRoot)

	holder := flock.New(filepath.Join(dir, LockFile))
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: locked=%v err=%v", locked, err)
	}
	defer holder.Unlock()

	controller, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := controller.Run(context.Background(), dir); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestRunRejectsMissingTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	controller, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := controller.Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunRejectsDirectoryWithoutMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	controller, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := controller.Run(context.Background(), t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunJournalsSkippedStages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	dir := completedRunDir(t, cfg.Paths.OutputRoot)
	store := testsupport.MustOpenLedger(t, cfg)

	controller, err := New(cfg, Options{Ledger: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := controller.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	events, err := store.StageHistory(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("StageHistory: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("len(events) = %d, want one per stage", len(events))
	}
	for _, event := range events {
		if event.Outcome != "skipped" {
			t.Errorf("stage %s outcome = %s, want skipped", event.Stage, event.Outcome)
		}
	}

	run, err := store.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.State != string(StateExported) {
		t.Errorf("ledger state = %s, want exported", run.State)
	}
}
