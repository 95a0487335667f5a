// Package topics runs curated subject searches: each topic is a fixed list
// of Arabic keywords, and a topic search merges the hits of its leading
// keywords.
package topics

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
)

const (
	// MaxKeywords is how many of a topic's keywords are searched.
	MaxKeywords = 2
	// MaxResults caps a topic search.
	MaxResults = 30
)

type Topic struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Keywords []string `json:"keywords"`
}

var catalog = []Topic{
	{Name: "الصلاة", Slug: "prayer", Keywords: []string{"صلاة", "صلوا", "الصلاة", "المصلين", "ركوع", "سجود"}},
	{Name: "الزكاة", Slug: "zakat", Keywords: []string{"زكاة", "الزكاة", "صدقة", "ينفقون", "أنفقوا"}},
	{Name: "الصيام", Slug: "fasting", Keywords: []string{"صيام", "الصيام", "صوم", "رمضان"}},
	{Name: "الحج", Slug: "pilgrimage", Keywords: []string{"حج", "الحج", "عمرة", "الكعبة", "مكة"}},
	{Name: "الجنة", Slug: "paradise", Keywords: []string{"جنة", "الجنة", "جنات", "نعيم", "فردوس"}},
	{Name: "النار", Slug: "hellfire", Keywords: []string{"نار", "النار", "جهنم", "عذاب", "سعير"}},
	{Name: "التوبة", Slug: "repentance", Keywords: []string{"توبة", "التوبة", "استغفر", "يتوب", "التائبين"}},
	{Name: "الصبر", Slug: "patience", Keywords: []string{"صبر", "الصبر", "صابرين", "اصبروا"}},
	{Name: "الشكر", Slug: "gratitude", Keywords: []string{"شكر", "الشكر", "شاكرين", "اشكروا"}},
	{Name: "الدعاء", Slug: "supplication", Keywords: []string{"دعاء", "ادعوا", "يدعون", "دعوة"}},
	{Name: "الرحمة", Slug: "mercy", Keywords: []string{"رحمة", "الرحمة", "رحيم", "رحمان"}},
	{Name: "العدل", Slug: "justice", Keywords: []string{"عدل", "العدل", "قسط", "ظلم"}},
	{Name: "الأخلاق", Slug: "character", Keywords: []string{"خلق", "أخلاق", "حسن", "معروف"}},
	{Name: "القيامة", Slug: "resurrection", Keywords: []string{"قيامة", "القيامة", "يوم الدين", "البعث", "الحساب"}},
}

// All returns the topic catalog in display order.
func All() []Topic {
	out := make([]Topic, len(catalog))
	copy(out, catalog)
	return out
}

// Find looks a topic up by slug (case-insensitive) or by Arabic name, with
// or without diacritics and Hamza variants.
func Find(name string) (Topic, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Topic{}, false
	}
	norm := normalizer.Normalize(name, normalizer.DefaultOptions())
	for _, t := range catalog {
		if strings.EqualFold(t.Slug, name) || normalizer.Normalize(t.Name, normalizer.DefaultOptions()) == norm {
			return t, true
		}
	}
	return Topic{}, false
}

// Searcher is satisfied by *executor.Executor.
type Searcher interface {
	Execute(ctx context.Context, query string, opts executor.Options) (*executor.SearchResult, error)
}

// Search runs the topic's first MaxKeywords keywords, keeps the first
// occurrence of each verse and caps the list at MaxResults. A keyword that
// fails is skipped, except when the engine is not initialized.
func Search(ctx context.Context, s Searcher, topic Topic, opts executor.Options) ([]executor.Result, error) {
	logger := slog.Default().With("component", "topic-search")
	seen := make(map[corpus.VerseKey]struct{})
	out := make([]executor.Result, 0)
	for _, keyword := range topic.Keywords[:min(MaxKeywords, len(topic.Keywords))] {
		res, err := s.Execute(ctx, keyword, opts)
		if err != nil {
			if errors.Is(err, apperrors.ErrEngineNotInitialized) || ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("topic keyword failed", "topic", topic.Slug, "keyword", keyword, "error", err)
			continue
		}
		for _, r := range res.Results {
			key := r.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
		}
	}
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out, nil
}
