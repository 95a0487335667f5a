package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/resilience"
)

// Source is an opened corpus source. Close releases its connections.
type Source struct {
	Loader
	Postgres *PostgresLoader
	close    func() error
}

func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open returns the loader selected by cfg.Corpus.Source, connecting to
// PostgreSQL when that source is configured.
func Open(ctx context.Context, cfg *config.Config) (*Source, error) {
	switch cfg.Corpus.Source {
	case config.SourceFile:
		return &Source{Loader: NewFileLoader(cfg.Corpus.Path)}, nil
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("opening corpus database: %w", err)
		}
		pl := NewPostgresLoader(db, cfg.Corpus.Table, resilience.RetryConfig{
			MaxAttempts:  cfg.Corpus.RetryAttempts,
			InitialDelay: cfg.Corpus.RetryDelay,
		}, cfg.Corpus.QueryTimeout)
		return &Source{Loader: pl, Postgres: pl, close: db.Close}, nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}
