package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"parallax/internal/geometry"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	doc := &Document{
		RunID:             "0f2a7c4e",
		SourceMP4:         "/videos/source.mp4",
		CreatedAt:         time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ResolutionCeiling: 720,
		FPSCeiling:        24,
		MaxSceneSeconds:   45,
		Geometry: &geometry.Plan{
			SourceWidth: 1920, SourceHeight: 1080,
			CropLeft: 2, CropRight: 2,
			RGBWidth: 1916, RGBHeight: 1080,
			DepthWidth: 720, DepthHeight: 406,
		},
		SceneCount:       2,
		SceneTimestamps:  []float64{0, 31.5},
		SceneMinDepths:   []float64{0.8, 1.0},
		SceneMaxDepths:   []float64{14.2, 10.0},
		SceneScreenDists: []float64{2.9, 3.0},
		SceneFallbacks:   []int{2},
	}
	if err := store.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateMutatesIncrementally(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(&Document{RunID: "a", SourceMP4: "s.mp4"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	updated, err := store.Update(func(doc *Document) {
		doc.SceneCount = 7
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.SceneCount != 7 || updated.RunID != "a" {
		t.Errorf("updated = %+v", updated)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SceneCount != 7 {
		t.Errorf("persisted scene count = %d", loaded.SceneCount)
	}
}

// Documents written by older revisions carry fewer fields; they must load
// with zero values rather than fail.
func TestLoadForwardCompatible(t *testing.T) {
	dir := t.TempDir()
	legacy := []byte(`{
  "source_path": "/videos/old.mp4",
  "scene_count": 3,
  "unknown_future_field": {"nested": true}
}`)
	if err := os.WriteFile(filepath.Join(dir, FileName), legacy, 0o644); err != nil {
		t.Fatalf("write legacy document: %v", err)
	}

	doc, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.SourceMP4 != "/videos/old.mp4" || doc.SceneCount != 3 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.RunID != "" || doc.Geometry != nil || doc.Video != nil {
		t.Errorf("absent fields not defaulted: %+v", doc)
	}
}

func TestLoadMissingDocument(t *testing.T) {
	if _, err := NewStore(t.TempDir()).Load(); err == nil {
		t.Fatal("Load succeeded without a document")
	}
}
