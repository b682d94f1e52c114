package pipeline

import (
	"path/filepath"

	"parallax/internal/fileutil"
	"parallax/internal/metadata"
	"parallax/internal/scenesplit"
)

// State is the run's position in the stage sequence, derived from artifact
// presence rather than a recorded status field. Artifacts on disk are the
// authoritative completion proof; a stage reruns exactly when its artifact is
// absent.
type State string

const (
	StateUninitialized     State = "uninitialized"
	StatePlanned           State = "planned"
	StateScenesSplit       State = "scenes_split"
	StateRGBReady          State = "rgb_ready"
	StateDepthReady        State = "depth_ready"
	StateDepthSkipped      State = "depth_skipped"
	StateMetadataFinalized State = "metadata_finalized"
	StateExported          State = "exported"
)

// Artifact names inside a run directory.
const (
	LockFile      = ".parallax.lock"
	ProcessedFile = "processed.mp4"
	ScenesDirName = "scenes"
	RGBFile       = "rgb.mp4"
	DepthFile     = "depth.mp4"
	ExportDirName = "export"
	DepthArchive  = "depth.npz"
)

func processedPath(dir string) string { return filepath.Join(dir, ProcessedFile) }
func scenesDir(dir string) string     { return filepath.Join(dir, ScenesDirName) }
func rgbPath(dir string) string       { return filepath.Join(dir, RGBFile) }
func depthPath(dir string) string     { return filepath.Join(dir, DepthFile) }
func exportDir(dir string) string     { return filepath.Join(dir, ExportDirName) }

// DetermineState inspects a run directory and its document and reports the
// furthest state whose artifact exists.
func DetermineState(dir string, doc *metadata.Document) State {
	if doc == nil {
		return StateUninitialized
	}
	switch {
	case fileutil.Exists(filepath.Join(exportDir(dir), RGBFile)):
		return StateExported
	case doc.Video != nil:
		return StateMetadataFinalized
	case fileutil.Exists(depthPath(dir)):
		return StateDepthReady
	case doc.DepthSkipped && fileutil.Exists(rgbPath(dir)):
		return StateDepthSkipped
	case fileutil.Exists(rgbPath(dir)):
		return StateRGBReady
	case fileutil.Exists(filepath.Join(scenesDir(dir), scenesplit.TimestampsFile)):
		return StateScenesSplit
	case doc.Geometry != nil && fileutil.Exists(processedPath(dir)):
		return StatePlanned
	default:
		return StateUninitialized
	}
}
