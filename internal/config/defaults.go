package config

const (
	defaultOutputRoot        = "~/.local/share/parallax/runs"
	defaultLogDir            = "~/.local/share/parallax/logs"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultSceneSplitBinary  = "scene-split"
	defaultBackendCommand    = "da3"
	defaultResolutionCeiling = 720
	defaultFPSCeiling        = 24.0
	defaultMaxSceneSeconds   = 45.0
	defaultSceneThreshold    = 27.0
	defaultDivisor           = 14
	defaultMinFreeGiB        = 5
	defaultBackendTimeout    = 1800
	defaultLedgerPath        = "~/.local/share/parallax/ledger.db"
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputRoot: defaultOutputRoot,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:     defaultFFmpegBinary,
			FFprobe:    defaultFFprobeBinary,
			SceneSplit: defaultSceneSplitBinary,
		},
		Pipeline: Pipeline{
			ResolutionCeiling: defaultResolutionCeiling,
			FPSCeiling:        defaultFPSCeiling,
			MaxSceneSeconds:   defaultMaxSceneSeconds,
			SceneThreshold:    defaultSceneThreshold,
			Divisor:           defaultDivisor,
			MinFreeGiB:        defaultMinFreeGiB,
		},
		DepthBackend: DepthBackend{
			Command:        defaultBackendCommand,
			TimeoutSeconds: defaultBackendTimeout,
		},
		Ledger: Ledger{
			Enabled: true,
			Path:    defaultLedgerPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
