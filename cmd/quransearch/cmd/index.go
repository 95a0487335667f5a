package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the index from the configured corpus and print the build report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			_, report, err := g.buildEngine(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, report)
			}
			fmt.Fprintf(out, "Verses:    %d (skipped %d)\n", report.Verses, report.Skipped)
			for reason, n := range report.SkippedByReason {
				fmt.Fprintf(out, "  %-16s %d\n", reason, n)
			}
			fmt.Fprintf(out, "Chapters:  %d\n", report.Chapters)
			fmt.Fprintf(out, "Terms:     %d\n", report.Terms)
			fmt.Fprintf(out, "Postings:  %d\n", report.Postings)
			fmt.Fprintf(out, "Size:      %d bytes\n", report.SizeBytes)
			fmt.Fprintf(out, "Workers:   %d\n", report.Workers)
			fmt.Fprintf(out, "Duration:  %s\n", report.Duration)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	return cmd
}
