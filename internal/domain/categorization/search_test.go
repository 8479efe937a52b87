package categorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })

	err = si.IndexHistory([]Transaction{
		historyEntry("STARBUCKS COFFEE #123", "Food & Dining", "Coffee Shops", true),
		historyEntry("SHELL OIL 2231", "Transportation", "Gas", false),
		historyEntry("SHELL OIL 4410", "Transportation", "Gas", false),
		{Entity: "UNLABELED SHOP"}, // uncategorized, must be skipped
	})
	require.NoError(t, err)
	return si
}

// Test indexing and basic search
func TestSearchIndex_Search(t *testing.T) {
	si := newTestIndex(t)

	count, err := si.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	t.Run("finds by term", func(t *testing.T) {
		hits, err := si.Search("starbucks", 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "Food & Dining", hits[0].Document.Category)
	})

	t.Run("tolerates one typo", func(t *testing.T) {
		hits, err := si.Search("starbacks", 10)
		require.NoError(t, err)
		assert.NotEmpty(t, hits)
	})

	t.Run("manual entries carry a boost", func(t *testing.T) {
		hits, err := si.Search("starbucks", 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, 2.0, hits[0].Document.Boost)
	})

	t.Run("no results for unknown term", func(t *testing.T) {
		hits, err := si.Search("zzzzqqqq", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

// Test prefix search
func TestSearchIndex_SearchPrefix(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.SearchPrefix("shel", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

// Test category filtering
func TestSearchIndex_SearchByCategory(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.SearchByCategory("Transportation", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Equal(t, "Transportation", hit.Document.Category)
	}
}

// Test document deletion
func TestSearchIndex_DeleteDocument(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.Search("starbucks", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	require.NoError(t, si.DeleteDocument(hits[0].Document.ID))

	count, err := si.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

// Test persistent index creation
func TestSearchIndex_Persistent(t *testing.T) {
	path := t.TempDir() + "/txindex.bleve"

	si, err := NewSearchIndex(path)
	require.NoError(t, err)
	require.NoError(t, si.IndexHistory([]Transaction{
		historyEntry("STARBUCKS", "Food & Dining", "", true),
	}))
	require.NoError(t, si.Close())

	reopened, err := NewSearchIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
