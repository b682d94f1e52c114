package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parallax/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <reference> <candidate>",
		Short: "Check two streams for frame-exact synchronization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			verifier := verify.New(verify.FFprobeProber{Binary: cfg.Tools.FFprobe})
			report, err := verifier.Verify(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(report.Findings) == 0 {
				fmt.Fprintln(out, "Verified: streams are frame-exact synchronized.")
				return nil
			}

			rows := make([][]string, 0, len(report.Findings))
			for _, finding := range report.Findings {
				rows = append(rows, []string{
					string(finding.Check),
					string(finding.Severity),
					finding.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Severity", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if !report.Verified() {
				return fmt.Errorf("verification failed: %d critical finding(s)", len(report.Critical()))
			}
			fmt.Fprintln(out, "Verified with advisory findings only.")
			return nil
		},
	}
	return cmd
}
