package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"parallax/internal/geometry"
	"parallax/internal/logging"
	"parallax/internal/media/ffprobe"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var resolution int

	cmd := &cobra.Command{
		Use:   "plan <video>",
		Short: "Print the geometry derivation for a video without processing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("resolution") {
				cfg.Pipeline.ResolutionCeiling = resolution
			}

			result, err := ffprobe.Inspect(cmd.Context(), cfg.Tools.FFprobe, args[0])
			if err != nil {
				return err
			}
			video, err := result.Video()
			if err != nil {
				return err
			}

			plan, err := geometry.NewPlanner(logging.NewNop()).Compute(geometry.Input{
				SourceWidth:       video.Width,
				SourceHeight:      video.Height,
				ResolutionCeiling: cfg.Pipeline.ResolutionCeiling,
				Divisor:           cfg.Pipeline.Divisor,
			})
			if err != nil {
				return err
			}

			dims := func(w, h int) string {
				return strconv.Itoa(w) + "x" + strconv.Itoa(h)
			}
			rows := [][]string{
				{"Source", dims(plan.SourceWidth, plan.SourceHeight)},
				{"RGB", dims(plan.RGBWidth, plan.RGBHeight)},
				{"Depth", dims(plan.DepthWidth, plan.DepthHeight)},
				{"Crop", fmt.Sprintf("%d left / %d right", plan.CropLeft, plan.CropRight)},
				{"RGB aspect", fmt.Sprintf("%.6f", plan.RGBAspect())},
				{"Depth aspect", fmt.Sprintf("%.6f", plan.DepthAspect())},
				{"Aspect delta", fmt.Sprintf("%.4f%%", plan.AspectDelta()*100)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dimension", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&resolution, "resolution", 0, "Depth stream width ceiling in pixels")
	return cmd
}
