package cmd

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/topics"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"github.com/spf13/cobra"
)

func newTopicsCmd(g *globalOptions) *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "topics [name]",
		Short: "List topics, or show the verses of one topic",
		Long: `Without arguments, list the built-in topic catalog. With a topic slug or
Arabic name, search every keyword of the topic and print the verses found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				all := topics.All()
				if format == formatJSON {
					return writeJSON(out, all)
				}
				for _, t := range all {
					fmt.Fprintf(out, "%-14s %-10s %s\n", t.Slug, t.Name, strings.Join(t.Keywords, "، "))
				}
				return nil
			}

			topic, ok := topics.Find(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", apperrors.ErrTopicNotFound, args[0])
			}
			engine, _, err := g.buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			opts := executor.DefaultOptions()
			opts.Limit = limit
			opts.Highlight = false
			opts.PrefixBackoff = g.cfg.Search.PrefixBackoff

			results, err := topics.Search(cmd.Context(), executor.New(engine, "", ""), topic, opts)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(out, map[string]any{"topic": topic, "total": len(results), "results": results})
			}
			fmt.Fprintf(out, "%s (%s): %d verse(s)\n", topic.Name, topic.Slug, len(results))
			for _, r := range results {
				fmt.Fprintf(out, "\n[%d:%d] %s\n  %s\n", r.ChapterNumber, r.VerseNumber, r.ChapterName, r.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	cmd.Flags().IntVarP(&limit, "limit", "n", executor.DefaultLimit, "Maximum results per keyword")
	return cmd
}
