package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

type searchOptions struct {
	exact     bool
	limit     int
	noSort    bool
	noBackoff bool
	format    string
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search verses by word, prefix or exact phrase",
		Long: `Search the corpus for verses containing the query words. Diacritics and
Hamza/Alif variants are ignored. With --exact the normalized query must
appear as a contiguous phrase.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVarP(&opts.exact, "exact", "e", false, "Match the query as an exact phrase")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", executor.DefaultLimit, "Maximum results to print")
	cmd.Flags().BoolVar(&opts.noSort, "no-sort", false, "Keep canonical verse order instead of relevance order")
	cmd.Flags().BoolVar(&opts.noBackoff, "no-prefix-backoff", false, "Do not retry unmatched words with a shorter prefix")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text or json")

	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, opts *searchOptions, query string) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	if opts.limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	ctx := cmd.Context()
	engine, _, err := g.buildEngine(ctx)
	if err != nil {
		return err
	}

	execOpts := executor.DefaultOptions()
	execOpts.ExactMatch = opts.exact
	execOpts.Limit = opts.limit
	execOpts.SortByRelevance = !opts.noSort
	execOpts.PrefixBackoff = g.cfg.Search.PrefixBackoff && !opts.noBackoff
	execOpts.Highlight = false

	res, err := executor.New(engine, "", "").Execute(ctx, query, execOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == formatJSON {
		return writeJSON(out, res)
	}
	printSearchResult(out, res)
	return nil
}

func printSearchResult(w io.Writer, res *executor.SearchResult) {
	if len(res.Words) == 0 {
		fmt.Fprintln(w, "No searchable words in query.")
		return
	}
	fmt.Fprintf(w, "%d verse(s) for %q (%s)\n", res.TotalHits, res.Normalized, res.Mode)
	for _, r := range res.Results {
		fmt.Fprintf(w, "\n[%d:%d] %s  score=%.0f %s\n", r.ChapterNumber, r.VerseNumber, r.ChapterName, r.Score, r.MatchType)
		fmt.Fprintf(w, "  %s\n", r.Text)
	}
	if shown := len(res.Results); shown < res.TotalHits {
		fmt.Fprintf(w, "\n(%d more not shown, use --limit)\n", res.TotalHits-shown)
	}
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text or json)", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
