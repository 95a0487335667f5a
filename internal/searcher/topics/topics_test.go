package topics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results map[string][]executor.Result
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Execute(ctx context.Context, query string, opts executor.Options) (*executor.SearchResult, error) {
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return &executor.SearchResult{Query: query, Results: f.results[query]}, nil
}

func verse(c, v int) executor.Result {
	return executor.Result{ChapterNumber: c, VerseNumber: v}
}

func TestAllTopics(t *testing.T) {
	all := All()
	assert.Len(t, all, 14)
	slugs := make(map[string]bool)
	for _, topic := range all {
		assert.NotEmpty(t, topic.Name)
		assert.GreaterOrEqual(t, len(topic.Keywords), MaxKeywords, topic.Slug)
		assert.False(t, slugs[topic.Slug], "duplicate slug %s", topic.Slug)
		slugs[topic.Slug] = true
	}

	all[0].Name = "changed"
	assert.Equal(t, "الصلاة", All()[0].Name, "All returns a copy")
}

func TestFind(t *testing.T) {
	tests := []struct {
		input string
		slug  string
		ok    bool
	}{
		{input: "prayer", slug: "prayer", ok: true},
		{input: "Mercy", slug: "mercy", ok: true},
		{input: "الصلاة", slug: "prayer", ok: true},
		{input: "الأخلاق", slug: "character", ok: true},
		{input: "الاخلاق", slug: "character", ok: true},
		{input: "الصَّبْرُ", slug: "patience", ok: true},
		{input: "astronomy", ok: false},
		{input: "  ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			topic, ok := Find(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.slug, topic.Slug)
			}
		})
	}
}

func TestSearchMergesFirstTwoKeywords(t *testing.T) {
	topic, ok := Find("prayer")
	require.True(t, ok)
	s := &fakeSearcher{results: map[string][]executor.Result{
		"صلاة":   {verse(2, 3), verse(2, 43)},
		"صلوا":   {verse(2, 43), verse(33, 56)},
		"الصلاة": {verse(99, 1)},
	}}

	got, err := Search(context.Background(), s, topic, executor.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"صلاة", "صلوا"}, s.queries)
	assert.Equal(t, []executor.Result{verse(2, 3), verse(2, 43), verse(33, 56)}, got)
}

func TestSearchCapsResults(t *testing.T) {
	first := make([]executor.Result, 0, 40)
	for i := 1; i <= 40; i++ {
		first = append(first, verse(2, i))
	}
	topic := Topic{Slug: "t", Keywords: []string{"a", "b"}}
	s := &fakeSearcher{results: map[string][]executor.Result{"a": first}}

	got, err := Search(context.Background(), s, topic, executor.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, got, MaxResults)
}

func TestSearchSkipsFailingKeyword(t *testing.T) {
	topic := Topic{Slug: "t", Keywords: []string{"a", "b"}}
	s := &fakeSearcher{
		results: map[string][]executor.Result{"b": {verse(3, 1)}},
		errs:    map[string]error{"a": errors.New("transient")},
	}
	got, err := Search(context.Background(), s, topic, executor.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []executor.Result{verse(3, 1)}, got)
}

func TestSearchNotInitialized(t *testing.T) {
	topic := Topic{Slug: "t", Keywords: []string{"a", "b"}}
	s := &fakeSearcher{errs: map[string]error{"a": fmt.Errorf("wrapped: %w", apperrors.ErrEngineNotInitialized)}}
	_, err := Search(context.Background(), s, topic, executor.DefaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrEngineNotInitialized)
}

func TestSearchSingleKeywordTopic(t *testing.T) {
	topic := Topic{Slug: "t", Keywords: []string{"a"}}
	s := &fakeSearcher{results: map[string][]executor.Result{"a": {verse(1, 1)}}}
	got, err := Search(context.Background(), s, topic, executor.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
