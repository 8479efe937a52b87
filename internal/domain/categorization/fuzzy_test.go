package categorization

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test edit-distance matching against history
func TestFuzzyMatch(t *testing.T) {
	history := []Transaction{
		historyEntry("STARBUCKS #123", "Food & Dining", "Coffee Shops", true),
		historyEntry("SHELL OIL 2231", "Transportation", "Gas", false),
		historyEntry("PAYROLL ACME CORP", CategoryIncome, "Salary", true),
	}

	t.Run("close variant matches", func(t *testing.T) {
		result := FuzzyMatch("STARBUCKS #456", history, nil, 0.7)
		require.NotNil(t, result)
		assert.Equal(t, "Food & Dining", result.Category)
		assert.Equal(t, "Coffee Shops", result.Subcategory)
		assert.GreaterOrEqual(t, result.Confidence, 60)
		assert.Equal(t, MethodFuzzyMatch, result.Method)
	})

	t.Run("unrelated description misses", func(t *testing.T) {
		assert.Nil(t, FuzzyMatch("COMPLETELY DIFFERENT VENDOR NAME", history, nil, 0.7))
	})

	t.Run("positive amount restricts pool to income", func(t *testing.T) {
		amount := decimal.NewFromInt(2500)
		result := FuzzyMatch("PAYROLL ACME CORP.", history, &amount, 0.7)
		require.NotNil(t, result)
		assert.Equal(t, CategoryIncome, result.Category)
	})

	t.Run("spending query never matches income history", func(t *testing.T) {
		spend := decimal.NewFromInt(-40)
		assert.Nil(t, FuzzyMatch("PAYROLL ACME CORP.", history, &spend, 0.7))
	})

	t.Run("tight threshold rejects a loose match", func(t *testing.T) {
		assert.Nil(t, FuzzyMatch("STARBUCKS #456", history, nil, 0.95))
	})

	t.Run("non-positive threshold uses the default", func(t *testing.T) {
		result := FuzzyMatch("STARBUCKS #456", history, nil, 0)
		assert.NotNil(t, result)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Nil(t, FuzzyMatch("", history, nil, 0.7))
		assert.Nil(t, FuzzyMatch("STARBUCKS", nil, nil, 0.7))
	})
}

// Similarity is (maxLen - distance) / maxLen
func TestFuzzySimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, fuzzySimilarity("starbucks", "starbucks"), 1e-9)
	assert.Equal(t, 0.0, fuzzySimilarity("", "anything"))
	assert.Equal(t, 0.0, fuzzySimilarity("", ""))

	// one substitution in a 9-rune string
	assert.InDelta(t, 8.0/9.0, fuzzySimilarity("starbucks", "starbacks"), 1e-9)
}

// Test ranked similarity listings
func TestTopSimilar(t *testing.T) {
	history := []Transaction{
		historyEntry("STARBUCKS #123", "Food & Dining", "Coffee Shops", true),
		historyEntry("STARBUCKS #999", "Food & Dining", "Coffee Shops", false),
		historyEntry("SHELL OIL 2231", "Transportation", "Gas", false),
	}

	results := TopSimilar("STARBUCKS #124", history, 5)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, "Food & Dining", results[0].Transaction.Category)

	t.Run("limit is honored", func(t *testing.T) {
		assert.Len(t, TopSimilar("STARBUCKS #124", history, 1), 1)
	})

	t.Run("zero limit", func(t *testing.T) {
		assert.Nil(t, TopSimilar("STARBUCKS #124", history, 0))
	})
}
