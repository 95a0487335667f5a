package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChaptersCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "chapters [query]",
		Short: "List chapters, optionally filtered by name or number",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			engine, _, err := g.buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := engine.Snapshot()
			if err != nil {
				return err
			}

			chapters := snap.Chapters
			if q := strings.Join(args, " "); strings.TrimSpace(q) != "" {
				chapters = chapters.Search(q, snap.Normalization)
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, chapters)
			}
			for _, ch := range chapters {
				fmt.Fprintf(out, "%3d  %-24s %-20s %d verses\n", ch.Number, ch.Name, ch.EnglishName, ch.VerseCount)
			}
			if len(chapters) == 0 {
				fmt.Fprintln(out, "No matching chapters.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	return cmd
}
