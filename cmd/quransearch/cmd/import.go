package cmd

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	"github.com/spf13/cobra"
)

func newImportCmd(g *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a JSON corpus file into the PostgreSQL verse table",
		Long: `Load an alquran.cloud style JSON corpus and replace the contents of the
configured PostgreSQL verse table with it. The configured corpus source
must be postgres.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.Corpus.Source != config.SourcePostgres {
				return fmt.Errorf("import requires corpus.source %q, got %q", config.SourcePostgres, g.cfg.Corpus.Source)
			}
			ctx := cmd.Context()

			c, err := corpus.NewFileLoader(file).Load(ctx)
			if err != nil {
				return err
			}
			source, err := corpus.Open(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer source.Close()

			if err := source.Postgres.Import(ctx, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d verses into %s\n", len(c.Verses), g.cfg.Corpus.Table)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Corpus JSON file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
