package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"parallax/internal/ledger"
	"parallax/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		resolution      int
		fpsCeiling      float64
		durationCeiling float64
		maxSceneSeconds float64
		sceneThreshold  float64
		skipDepth       bool
		skipExport      bool
		backendURL      string
		modelDir        string
		outputRoot      string
	)

	cmd := &cobra.Command{
		Use:   "run <video|run-dir>",
		Short: "Process a video into a frame-aligned RGB + depth pair, or resume a run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("resolution") {
				cfg.Pipeline.ResolutionCeiling = resolution
			}
			if flags.Changed("fps") {
				cfg.Pipeline.FPSCeiling = fpsCeiling
			}
			if flags.Changed("duration") {
				cfg.Pipeline.DurationCeiling = durationCeiling
			}
			if flags.Changed("max-scene-seconds") {
				cfg.Pipeline.MaxSceneSeconds = maxSceneSeconds
			}
			if flags.Changed("scene-threshold") {
				cfg.Pipeline.SceneThreshold = sceneThreshold
			}
			if flags.Changed("backend-url") {
				cfg.DepthBackend.URL = backendURL
			}
			if flags.Changed("model-dir") {
				cfg.DepthBackend.ModelDir = modelDir
			}
			if flags.Changed("output-root") {
				cfg.Paths.OutputRoot = outputRoot
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			opts := pipeline.Options{
				SkipDepth:  skipDepth,
				SkipExport: skipExport,
				Logger:     logger,
			}
			if cfg.Ledger.Enabled {
				store, err := ledger.Open(cfg.Ledger.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Ledger = store
			}

			controller, err := pipeline.New(cfg, opts)
			if err != nil {
				return err
			}
			result, err := controller.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printRunSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().IntVar(&resolution, "resolution", 0, "Depth stream width ceiling in pixels")
	cmd.Flags().Float64Var(&fpsCeiling, "fps", 0, "Frame-rate ceiling for both streams")
	cmd.Flags().Float64Var(&durationCeiling, "duration", 0, "Cap processed duration in seconds (0 = full video)")
	cmd.Flags().Float64Var(&maxSceneSeconds, "max-scene-seconds", 0, "Per-scene ceiling above which depth inference is skipped")
	cmd.Flags().Float64Var(&sceneThreshold, "scene-threshold", 0, "Scene boundary detection threshold")
	cmd.Flags().BoolVar(&skipDepth, "skip-depth", false, "Skip depth inference entirely")
	cmd.Flags().BoolVar(&skipExport, "skip-export", false, "Stop after metadata finalization")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "Remote depth backend URL")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "Depth model checkpoint directory")
	cmd.Flags().StringVar(&outputRoot, "output-root", "", "Run directory root")

	return cmd
}

func printRunSummary(cmd *cobra.Command, result *pipeline.Result) {
	printer := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s finished in state %s\n", result.RunID, result.State)
	fmt.Fprintf(out, "Run directory: %s\n", result.RunDir)
	doc := result.Document
	if doc == nil {
		return
	}
	if doc.SceneCount > 0 {
		printer.Fprintf(out, "Scenes: %d (%d flat fallback)\n", doc.SceneCount, len(doc.SceneFallbacks))
	}
	if doc.Video != nil {
		printer.Fprintf(out, "RGB stream: %dx%d @ %.3f fps, %d frames\n",
			doc.Video.Width, doc.Video.Height, doc.Video.FPS, doc.Video.FrameCount)
	}
	if doc.Depth != nil {
		printer.Fprintf(out, "Depth stream: %dx%d @ %.3f fps, %d frames\n",
			doc.Depth.Width, doc.Depth.Height, doc.Depth.FPS, doc.Depth.FrameCount)
	}
	if doc.Verified {
		fmt.Fprintln(out, "Synchronization: verified")
	}
}
