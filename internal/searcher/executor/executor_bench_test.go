package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
)

// benchExecutor indexes the test verses repeated across every chapter.
func benchExecutor(b *testing.B, copies int) *Executor {
	b.Helper()
	verses := make([]corpus.Verse, 0, copies*len(wider))
	for c := 0; c < copies; c++ {
		for i, v := range wider {
			v.ChapterNumber = c%114 + 1
			v.VerseNumber = (c/114)*len(wider) + i + 1
			verses = append(verses, v)
		}
	}
	engine := indexer.NewEngine(config.IndexConfig{Workers: 4, ArticleStemming: true}, normalizer.DefaultOptions())
	if _, err := engine.Build(context.Background(), &corpus.Corpus{Verses: verses}); err != nil {
		b.Fatal(err)
	}
	return New(engine, "<mark>", "</mark>")
}

func BenchmarkQueryParse(b *testing.B) {
	queries := map[string]string{
		"single":     "الرحمن",
		"diacritics": "ٱلرَّحْمَٰنِ ٱلرَّحِيمِ",
		"long":       strings.Repeat("مالك يوم الدين ", 8),
	}
	opts := normalizer.DefaultOptions()
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q, opts)
			}
		})
	}
}

func BenchmarkExecute(b *testing.B) {
	e := benchExecutor(b, 700)
	cases := []struct {
		name  string
		query string
		exact bool
	}{
		{"word", "الله", false},
		{"words", "الرحمن الرحيم", false},
		{"prefix_backoff", "الناسك", false},
		{"phrase", "الرحمن الرحيم", true},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			opts := DefaultOptions()
			opts.ExactMatch = tc.exact
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.Execute(context.Background(), tc.query, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecuteLimits(b *testing.B) {
	e := benchExecutor(b, 700)
	for _, limit := range []int{10, 50, 500} {
		b.Run(fmt.Sprintf("limit_%d", limit), func(b *testing.B) {
			opts := DefaultOptions()
			opts.Limit = limit
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.Execute(context.Background(), "الله", opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecuteParallel(b *testing.B) {
	e := benchExecutor(b, 700)
	opts := DefaultOptions()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.Execute(context.Background(), "قل اعوذ", opts); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
