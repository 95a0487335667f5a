package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/resilience"
	"github.com/lib/pq"
)

// PostgresLoader reads verses from a table with the columns
//
//	chapter_number INT, chapter_name TEXT, verse_number INT, text TEXT,
//	page INT NULL, juz INT NULL, global_number INT NULL
//
// ordered by chapter and verse. Chapters are derived from the rows.
//
// Each attempt is bounded by queryTimeout; scan failures are not retried.
type PostgresLoader struct {
	db           *postgres.Client
	table        string
	retry        resilience.RetryConfig
	queryTimeout time.Duration
	logger       *slog.Logger
}

func NewPostgresLoader(db *postgres.Client, table string, retry resilience.RetryConfig, queryTimeout time.Duration) *PostgresLoader {
	if table == "" {
		table = "verses"
	}
	return &PostgresLoader{
		db:           db,
		table:        table,
		retry:        retry,
		queryTimeout: queryTimeout,
		logger:       slog.Default().With("component", "corpus-postgres"),
	}
}

func (l *PostgresLoader) Load(ctx context.Context) (*Corpus, error) {
	var verses []Verse
	err := resilience.Retry(ctx, "load-verses", l.retry, func() error {
		var attempt []Verse
		err := resilience.WithTimeout(ctx, l.queryTimeout, "query-verses", func(ctx context.Context) error {
			var err error
			attempt, err = l.queryVerses(ctx)
			return err
		})
		if err == nil {
			verses = attempt
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	c := &Corpus{
		Chapters: DeriveChapters(verses),
		Verses:   verses,
	}
	l.logger.Info("corpus loaded",
		"table", l.table,
		"chapters", len(c.Chapters),
		"verses", len(c.Verses),
	)
	return c, nil
}

func (l *PostgresLoader) queryVerses(ctx context.Context) ([]Verse, error) {
	query := fmt.Sprintf(
		`SELECT chapter_number, chapter_name, verse_number, text, page, juz, global_number
		FROM %s ORDER BY chapter_number, verse_number`,
		pq.QuoteIdentifier(l.table),
	)
	rows, err := l.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying verses: %w", err)
	}
	defer rows.Close()

	verses := make([]Verse, 0, 6236)
	for rows.Next() {
		var (
			v                       Verse
			page, juz, globalNumber sql.NullInt64
		)
		if err := rows.Scan(&v.ChapterNumber, &v.ChapterName, &v.VerseNumber, &v.Text, &page, &juz, &globalNumber); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("scanning verse row: %w", err))
		}
		v.Page = int(page.Int64)
		v.Juz = int(juz.Int64)
		v.GlobalNumber = int(globalNumber.Int64)
		verses = append(verses, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating verse rows: %w", err)
	}
	return verses, nil
}

// Import replaces the table's contents with c's verses in one transaction,
// creating the table if needed.
func (l *PostgresLoader) Import(ctx context.Context, c *Corpus) error {
	if c == nil || len(c.Verses) == 0 {
		return fmt.Errorf("importing corpus: no verses")
	}
	table := pq.QuoteIdentifier(l.table)
	err := l.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chapter_number INT NOT NULL,
			chapter_name   TEXT NOT NULL,
			verse_number   INT NOT NULL,
			text           TEXT NOT NULL,
			page           INT NULL,
			juz            INT NULL,
			global_number  INT NULL,
			PRIMARY KEY (chapter_number, verse_number)
		)`, table)); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", table)); err != nil {
			return fmt.Errorf("truncating table: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(l.table,
			"chapter_number", "chapter_name", "verse_number", "text", "page", "juz", "global_number"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for _, v := range c.Verses {
			if _, err := stmt.ExecContext(ctx, v.ChapterNumber, v.ChapterName, v.VerseNumber, v.Text,
				nullInt(v.Page), nullInt(v.Juz), nullInt(v.GlobalNumber)); err != nil {
				stmt.Close()
				return fmt.Errorf("copying verse %d:%d: %w", v.ChapterNumber, v.VerseNumber, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return err
	}
	l.logger.Info("corpus imported", "table", l.table, "verses", len(c.Verses))
	return nil
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

// Ping checks the database behind the loader.
func (l *PostgresLoader) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}
