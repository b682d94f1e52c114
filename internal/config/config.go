package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputRoot string `toml:"output_root"`
	LogDir     string `toml:"log_dir"`
}

// Tools names the external binaries the pipeline drives.
type Tools struct {
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
	SceneSplit string `toml:"scene_split"`
}

// Pipeline contains geometry and timing ceilings for a run.
type Pipeline struct {
	// ResolutionCeiling is the depth stream width in pixels.
	ResolutionCeiling int `toml:"resolution_ceiling"`
	// FPSCeiling is the output frame rate both streams are conformed to.
	FPSCeiling float64 `toml:"fps_ceiling"`
	// DurationCeiling optionally caps the total processed duration in seconds (0 = full video).
	DurationCeiling float64 `toml:"duration_ceiling"`
	// MaxSceneSeconds is the per-scene duration ceiling above which depth
	// inference is skipped in favor of a flat unit.
	MaxSceneSeconds float64 `toml:"max_scene_seconds"`
	// SceneThreshold is passed to the external scene boundary detector.
	SceneThreshold float64 `toml:"scene_threshold"`
	// Divisor is the depth model's spatial divisibility constraint.
	Divisor int `toml:"divisor"`
	// MinFreeGiB is the free-space preflight floor for the output root.
	MinFreeGiB int `toml:"min_free_gib"`
}

// DepthBackend contains configuration for the external depth estimation model.
type DepthBackend struct {
	// Command is the local inference binary (subprocess mode).
	Command string `toml:"command"`
	// ModelDir is the model checkpoint directory handed to the backend.
	ModelDir string `toml:"model_dir"`
	// URL enables remote-backend mode when non-empty; the service must answer
	// a /status probe before inference is attempted.
	URL string `toml:"url"`
	// TimeoutSeconds bounds a single scene inference call (0 = no timeout).
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Ledger contains configuration for the cross-run SQLite registry.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for parallax.
type Config struct {
	Paths        Paths        `toml:"paths"`
	Tools        Tools        `toml:"tools"`
	Pipeline     Pipeline     `toml:"pipeline"`
	DepthBackend DepthBackend `toml:"depth_backend"`
	Ledger       Ledger       `toml:"ledger"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/parallax/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("parallax.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs before stage work begins.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputRoot, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RemoteBackend reports whether depth inference goes through an HTTP service.
func (c *Config) RemoteBackend() bool {
	return strings.TrimSpace(c.DepthBackend.URL) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the given path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
