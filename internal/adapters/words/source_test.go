package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeSamplesWithoutReplacement(t *testing.T) {
	path := writeWordFile(t, "alpha\nbeta\ngamma\ndelta\nepsilon\n")
	source := NewSource(path, nil)

	terms, err := source.Take(3)
	require.NoError(t, err)
	require.Len(t, terms, 3)

	seen := map[string]bool{}
	valid := map[string]bool{"alpha": true, "beta": true, "gamma": true, "delta": true, "epsilon": true}
	for _, term := range terms {
		assert.True(t, valid[term], "unexpected term %q", term)
		assert.False(t, seen[term], "term %q repeated", term)
		seen[term] = true
	}

	// The remaining pool covers the rest; no term appears twice across calls.
	more, err := source.Take(2)
	require.NoError(t, err)
	for _, term := range more {
		assert.False(t, seen[term], "term %q repeated across calls", term)
	}
}

func TestTakeReturnsPartialPoolWithoutFallback(t *testing.T) {
	path := writeWordFile(t, "one\ntwo\n")
	source := NewSource(path, nil)

	terms, err := source.Take(10)
	require.NoError(t, err)
	assert.Len(t, terms, 2, "file pool exhausted, no client for trends")
}

func TestTakeFailsWithNoWordsAnywhere(t *testing.T) {
	source := NewSource(filepath.Join(t.TempDir(), "missing.txt"), nil)

	_, err := source.Take(5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRelatedTermsWithoutClient(t *testing.T) {
	source := NewSource("", nil)
	assert.Nil(t, source.RelatedTerms("anything"))
}

func TestParseTrendingQueries(t *testing.T) {
	raw := []byte(`)]}',{"default":{"trendingSearchesDays":[{"trendingSearches":[
        {"title":{"query":"first topic"},"relatedQueries":[{"query":"first related"}]},
        {"title":{"query":"second topic"},"relatedQueries":[]}
    ]}]}}`)

	queries := parseTrendingQueries(raw)
	assert.Equal(t, []string{"first topic", "first related", "second topic"}, queries)
}

func TestParseTrendingQueriesGarbage(t *testing.T) {
	assert.Nil(t, parseTrendingQueries([]byte("not json")))
}

func TestReadWordFileSkipsBlankLines(t *testing.T) {
	path := writeWordFile(t, "one\n\n  \ntwo\n")
	assert.Equal(t, []string{"one", "two"}, readWordFile(path))
	assert.Nil(t, readWordFile(""))
}

func writeWordFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
