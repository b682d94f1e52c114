// Package scenesplit drives the external scene boundary detector and reads
// back the ordered scene units it produces. Scene detection itself is an
// opaque collaborator; this package only owns the invocation contract and
// the ordering validation of its outputs.
package scenesplit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TimestampsFile is the side artifact holding scene start times in seconds.
const TimestampsFile = "scene_timestamps.json"

// TimestampsPath returns the timestamp artifact location for a split
// output directory.
func TimestampsPath(outputDir string) string {
	return filepath.Join(outputDir, TimestampsFile)
}

// Scene identifies one contiguous unit of the source.
type Scene struct {
	// Index is the 1-based scene ordinal matching the scene_%03d naming.
	Index int
	// Start is the scene's start timestamp in seconds.
	Start float64
	// VideoPath is the trimmed RGB unit emitted by the splitter.
	VideoPath string
}

// Runner abstracts splitter execution for testability.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.Bytes(), err
}

// Option configures the splitter client.
type Option func(*Splitter)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(runner Runner) Option {
	return func(s *Splitter) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// Splitter wraps the external scene detection tool.
type Splitter struct {
	binary string
	runner Runner
}

// New constructs a splitter client.
func New(binary string, opts ...Option) (*Splitter, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("scene splitter binary required")
	}
	s := &Splitter{binary: binary, runner: execRunner{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split runs the detector on source, writing scene units and the timestamp
// artifact into outputDir, then loads the resulting scene list.
func (s *Splitter) Split(ctx context.Context, source, outputDir string, threshold, durationCap float64) ([]Scene, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("scene split: source required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("scene split: create output dir: %w", err)
	}

	args := []string{
		source,
		"-o", outputDir,
		"-t", strconv.FormatFloat(threshold, 'f', -1, 64),
		"--output-timestamps", filepath.Join(outputDir, TimestampsFile),
	}
	if durationCap > 0 {
		args = append(args, "--max-len", strconv.FormatFloat(durationCap, 'f', -1, 64))
	}

	output, err := s.runner.Run(ctx, s.binary, args)
	if err != nil {
		return nil, fmt.Errorf("scene split %s: %w: %s", source, err, strings.TrimSpace(string(output)))
	}

	return Load(outputDir)
}

// Load reads scene units and timestamps back from a split output directory.
// Used both after a fresh split and on resume, where the directory contents
// are the authoritative record.
func Load(outputDir string) ([]Scene, error) {
	raw, err := os.ReadFile(filepath.Join(outputDir, TimestampsFile))
	if err != nil {
		return nil, fmt.Errorf("scene split: read timestamps: %w", err)
	}
	var starts []float64
	if err := json.Unmarshal(raw, &starts); err != nil {
		return nil, fmt.Errorf("scene split: parse timestamps: %w", err)
	}
	if len(starts) == 0 {
		return nil, errors.New("scene split: no scenes recorded")
	}

	scenes := make([]Scene, 0, len(starts))
	for i, start := range starts {
		index := i + 1
		videoPath := filepath.Join(outputDir, SceneFileName(index))
		if _, err := os.Stat(videoPath); err != nil {
			return nil, fmt.Errorf("scene split: missing unit %s: %w", videoPath, err)
		}
		scenes = append(scenes, Scene{Index: index, Start: start, VideoPath: videoPath})
	}

	if !sort.SliceIsSorted(scenes, func(i, j int) bool { return scenes[i].Start < scenes[j].Start }) {
		return nil, errors.New("scene split: scene timestamps out of order")
	}
	return scenes, nil
}

// SceneFileName returns the zero-padded unit name for a 1-based index.
func SceneFileName(index int) string {
	return fmt.Sprintf("scene_%03d.mp4", index)
}
