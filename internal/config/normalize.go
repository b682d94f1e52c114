package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		c.Paths.OutputRoot = defaultOutputRoot
	}
	if c.Paths.OutputRoot, err = expandPath(c.Paths.OutputRoot); err != nil {
		return fmt.Errorf("paths.output_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	c.Tools.SceneSplit = strings.TrimSpace(c.Tools.SceneSplit)
	if c.Tools.SceneSplit == "" {
		c.Tools.SceneSplit = defaultSceneSplitBinary
	}

	if c.Pipeline.ResolutionCeiling == 0 {
		c.Pipeline.ResolutionCeiling = defaultResolutionCeiling
	}
	if c.Pipeline.FPSCeiling == 0 {
		c.Pipeline.FPSCeiling = defaultFPSCeiling
	}
	if c.Pipeline.MaxSceneSeconds == 0 {
		c.Pipeline.MaxSceneSeconds = defaultMaxSceneSeconds
	}
	if c.Pipeline.SceneThreshold == 0 {
		c.Pipeline.SceneThreshold = defaultSceneThreshold
	}
	if c.Pipeline.Divisor == 0 {
		c.Pipeline.Divisor = defaultDivisor
	}
	if c.Pipeline.MinFreeGiB == 0 {
		c.Pipeline.MinFreeGiB = defaultMinFreeGiB
	}

	c.DepthBackend.Command = strings.TrimSpace(c.DepthBackend.Command)
	if c.DepthBackend.Command == "" {
		c.DepthBackend.Command = defaultBackendCommand
	}
	c.DepthBackend.URL = strings.TrimSpace(c.DepthBackend.URL)
	if c.DepthBackend.ModelDir != "" {
		if c.DepthBackend.ModelDir, err = expandPath(c.DepthBackend.ModelDir); err != nil {
			return fmt.Errorf("depth_backend.model_dir: %w", err)
		}
	}

	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
