// Package metadata persists the run's JSON state document. The document is
// the single source of truth read back on resume: stages mutate it
// incrementally and absent fields default rather than error, so documents
// written by older revisions stay readable.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"parallax/internal/fileutil"
	"parallax/internal/geometry"
)

// FileName is the document's name inside a run directory.
const FileName = "metadata.json"

// StreamProperties records measured stream facts for the processed video.
type StreamProperties struct {
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	FrameCount int64   `json:"frame_count,omitempty"`
	Codec      string  `json:"codec,omitempty"`
	BitRate    int64   `json:"bit_rate,omitempty"`
}

// Document is the run metadata document.
type Document struct {
	RunID     string    `json:"run_id,omitempty"`
	SourceMP4 string    `json:"source_path"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	ResolutionCeiling int     `json:"resolution_ceiling,omitempty"`
	FPSCeiling        float64 `json:"fps_ceiling,omitempty"`
	DurationCeiling   float64 `json:"duration_ceiling,omitempty"`
	MaxSceneSeconds   float64 `json:"max_scene_seconds,omitempty"`
	BackendURL        string  `json:"backend_url,omitempty"`
	DepthSkipped      bool    `json:"depth_skipped,omitempty"`

	Geometry *geometry.Plan `json:"geometry,omitempty"`

	SceneCount       int       `json:"scene_count,omitempty"`
	SceneTimestamps  []float64 `json:"scene_timestamps,omitempty"`
	SceneMinDepths   []float64 `json:"scene_min_depths,omitempty"`
	SceneMaxDepths   []float64 `json:"scene_max_depths,omitempty"`
	SceneScreenDists []float64 `json:"scene_screen_dists,omitempty"`
	SceneFallbacks   []int     `json:"scene_fallbacks,omitempty"`
	// SceneDone marks scenes whose depth unit and stats were both recorded.
	// Presence of the unit file alone is not completion proof: a crash
	// between encode and metadata save must rerun the scene.
	SceneDone []bool `json:"scene_done,omitempty"`

	Video *StreamProperties `json:"video,omitempty"`
	Depth *StreamProperties `json:"depth,omitempty"`

	Verified   bool      `json:"verified,omitempty"`
	ExportedAt time.Time `json:"exported_at,omitempty"`
}

// Store reads and writes the document of one run directory.
type Store struct {
	dir string
}

// NewStore binds a store to a run directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the document's location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Exists reports whether a document has been written.
func (s *Store) Exists() bool {
	return fileutil.Exists(s.Path())
}

// Load reads the document. A missing file is an error: resume requires the
// initializing write to have happened.
func (s *Store) Load() (*Document, error) {
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("metadata: no document at %s", s.Path())
		}
		return nil, fmt.Errorf("metadata: read: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("metadata: parse %s: %w", s.Path(), err)
	}
	return &doc, nil
}

// Save persists the document atomically. Readers (including a concurrent
// status query) never observe a torn document.
func (s *Store) Save(doc *Document) error {
	if doc == nil {
		return errors.New("metadata: nil document")
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	return fileutil.WriteFileAtomic(s.Path(), append(raw, '\n'), 0o644)
}

// Update loads the document, applies mutate, and saves the result. Stages
// use this to keep their writes incremental rather than wholesale.
func (s *Store) Update(mutate func(*Document)) (*Document, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	mutate(doc)
	if err := s.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
