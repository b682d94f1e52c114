package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"parallax/internal/geometry"
	"parallax/internal/metadata"
	"parallax/internal/scenesplit"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeTimestamps(t *testing.T, dir string, starts []float64) {
	t.Helper()
	raw, err := json.Marshal(starts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(scenesplit.TimestampsPath(dir), raw, 0o644); err != nil {
		t.Fatalf("write timestamps: %v", err)
	}
}

func TestDetermineStateProgression(t *testing.T) {
	dir := t.TempDir()
	doc := &metadata.Document{SourceMP4: "/videos/a.mp4"}

	if got := DetermineState(dir, nil); got != StateUninitialized {
		t.Errorf("nil document state = %s", got)
	}
	if got := DetermineState(dir, doc); got != StateUninitialized {
		t.Errorf("empty dir state = %s", got)
	}

	doc.Geometry = &geometry.Plan{RGBWidth: 1916, RGBHeight: 1080}
	touch(t, processedPath(dir))
	if got := DetermineState(dir, doc); got != StatePlanned {
		t.Errorf("state = %s, want planned", got)
	}

	writeTimestamps(t, scenesDir(dir), []float64{0})
	if got := DetermineState(dir, doc); got != StateScenesSplit {
		t.Errorf("state = %s, want scenes_split", got)
	}

	touch(t, rgbPath(dir))
	if got := DetermineState(dir, doc); got != StateRGBReady {
		t.Errorf("state = %s, want rgb_ready", got)
	}

	touch(t, depthPath(dir))
	if got := DetermineState(dir, doc); got != StateDepthReady {
		t.Errorf("state = %s, want depth_ready", got)
	}

	doc.Video = &metadata.StreamProperties{FrameCount: 240}
	if got := DetermineState(dir, doc); got != StateMetadataFinalized {
		t.Errorf("state = %s, want metadata_finalized", got)
	}

	touch(t, filepath.Join(exportDir(dir), RGBFile))
	if got := DetermineState(dir, doc); got != StateExported {
		t.Errorf("state = %s, want exported", got)
	}
}

func TestDetermineStateDepthSkipped(t *testing.T) {
	dir := t.TempDir()
	doc := &metadata.Document{SourceMP4: "/videos/a.mp4", DepthSkipped: true}
	doc.Geometry = &geometry.Plan{}
	touch(t, processedPath(dir))
	touch(t, rgbPath(dir))

	if got := DetermineState(dir, doc); got != StateDepthSkipped {
		t.Errorf("state = %s, want depth_skipped", got)
	}
}
