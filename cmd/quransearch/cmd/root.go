// Package cmd provides the quransearch CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/logger"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	corpusPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the quransearch CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "quransearch",
		Short: "Search the Quran in Arabic from the command line",
		Long: `quransearch indexes the Arabic text of the Quran in memory and searches it
with diacritic-insensitive word, prefix and exact-phrase matching.

Examples:
  quransearch search الرحمن الرحيم
  quransearch search --exact "الحمد لله"
  quransearch chapters الناس
  quransearch topics mercy`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&g.corpusPath, "corpus", "", "Corpus JSON file (overrides corpus.path and selects the file source)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level written to stderr: debug, info, warn, error")

	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newChaptersCmd(g))
	cmd.AddCommand(newTopicsCmd(g))
	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newReloadCmd(g))
	cmd.AddCommand(newImportCmd(g))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (g *globalOptions) load(cmd *cobra.Command) error {
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), g.logLevel, "text"))
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.corpusPath != "" {
		cfg.Corpus.Source = config.SourceFile
		cfg.Corpus.Path = g.corpusPath
	}
	g.cfg = cfg
	return nil
}

// buildEngine loads the configured corpus and indexes it.
func (g *globalOptions) buildEngine(ctx context.Context) (*indexer.Engine, indexer.BuildReport, error) {
	source, err := corpus.Open(ctx, g.cfg)
	if err != nil {
		return nil, indexer.BuildReport{}, err
	}
	defer source.Close()

	c, err := source.Load(ctx)
	if err != nil {
		return nil, indexer.BuildReport{}, fmt.Errorf("loading corpus: %w", err)
	}
	engine := indexer.NewEngine(g.cfg.Index, g.cfg.Normalization)
	report, err := engine.Build(ctx, c)
	if err != nil {
		return nil, indexer.BuildReport{}, err
	}
	return engine, report, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
