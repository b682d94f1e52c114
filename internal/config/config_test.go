package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
output_root = "` + filepath.Join(dir, "runs") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[pipeline]
resolution_ceiling = 518
fps_ceiling = 30.0
scene_threshold = 32.5

[depth_backend]
url = "http://127.0.0.1:8900"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Errorf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Pipeline.ResolutionCeiling != 518 {
		t.Errorf("resolution ceiling = %d", cfg.Pipeline.ResolutionCeiling)
	}
	if cfg.Pipeline.FPSCeiling != 30.0 {
		t.Errorf("fps ceiling = %v", cfg.Pipeline.FPSCeiling)
	}
	if cfg.Pipeline.SceneThreshold != 32.5 {
		t.Errorf("scene threshold = %v", cfg.Pipeline.SceneThreshold)
	}
	// Unset sections keep defaults.
	if cfg.Pipeline.MaxSceneSeconds != defaultMaxSceneSeconds {
		t.Errorf("max scene seconds = %v", cfg.Pipeline.MaxSceneSeconds)
	}
	if !cfg.RemoteBackend() {
		t.Error("backend URL did not enable remote mode")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.toml")
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("exists = true for missing file")
	}
	if cfg.Pipeline.ResolutionCeiling != defaultResolutionCeiling {
		t.Errorf("resolution ceiling = %d, want default", cfg.Pipeline.ResolutionCeiling)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero resolution", func(c *Config) { c.Pipeline.ResolutionCeiling = 0 }},
		{"negative fps", func(c *Config) { c.Pipeline.FPSCeiling = -1 }},
		{"zero divisor", func(c *Config) { c.Pipeline.Divisor = 0 }},
		{"negative duration cap", func(c *Config) { c.Pipeline.DurationCeiling = -10 }},
		{"bad backend url", func(c *Config) { c.DepthBackend.URL = "not a url" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate accepted bad config")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(raw), "[pipeline]") {
		t.Error("sample missing pipeline section")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := ExpandPath("~/depth/runs")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "depth", "runs") {
		t.Errorf("ExpandPath = %q", got)
	}
}
