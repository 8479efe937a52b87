package categorization

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test basic automaton matching
func TestRuleEngine_Match(t *testing.T) {
	rules := []KeywordRule{
		{Category: "Transportation", Subcategory: "Rideshare", Keywords: []KeywordPattern{ParseKeyword("uber*")}, Priority: 60},
		{Category: "Groceries", Keywords: []KeywordPattern{ParseKeyword("walmart")}, Priority: 65},
	}
	engine := NewRuleEngine(rules)

	t.Run("matches substring keyword", func(t *testing.T) {
		result := engine.Match("POS WALMART STORE 123")
		require.NotNil(t, result)
		assert.Equal(t, "Groceries", result.Category)
	})

	t.Run("verifies prefix anchor after hit", func(t *testing.T) {
		require.NotNil(t, engine.Match("UBER TRIP 88"))
		// "uber" appears but not at the start, so the prefix rule must not fire
		assert.Nil(t, engine.Match("PAYMENT TO UBER"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		result := engine.Match("walmart neighborhood mkt")
		require.NotNil(t, result)
		assert.Equal(t, "Groceries", result.Category)
	})

	t.Run("returns nil for no match", func(t *testing.T) {
		assert.Nil(t, engine.Match("RANDOM TRANSACTION WITH NO MATCH"))
	})
}

// Test priority handling
func TestRuleEngine_Priority(t *testing.T) {
	rules := []KeywordRule{
		{Category: "Shopping", Keywords: []KeywordPattern{ParseKeyword("prime")}, Priority: 10},
		{Category: "Entertainment", Subcategory: "Streaming", Keywords: []KeywordPattern{ParseKeyword("prime")}, Priority: 90},
	}
	engine := NewRuleEngine(rules)

	result := engine.Match("AMAZON PRIME MEMBERSHIP")
	require.NotNil(t, result)
	assert.Equal(t, "Entertainment", result.Category)
}

// Test batch matching
func TestRuleEngine_MatchBatch(t *testing.T) {
	engine := NewRuleEngine([]KeywordRule{
		{Category: "Transportation", Keywords: []KeywordPattern{ParseKeyword("uber")}},
		{Category: "Shopping", Keywords: []KeywordPattern{ParseKeyword("amazon")}},
	})

	results := engine.MatchBatch([]string{
		"UBER TRIP 123",
		"RANDOM SHOP",
		"AMAZON PURCHASE",
	})

	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	assert.Equal(t, "Transportation", results[0].Category)
	assert.Nil(t, results[1])
	require.NotNil(t, results[2])
	assert.Equal(t, "Shopping", results[2].Category)
}

// Test empty engine
func TestRuleEngine_Empty(t *testing.T) {
	engine := NewRuleEngine(nil)

	assert.True(t, engine.IsEmpty())
	assert.Equal(t, 0, engine.RuleCount())
	assert.Nil(t, engine.Match("ANY TEXT"))
}

// Test rebuild functionality
func TestRuleEngine_Rebuild(t *testing.T) {
	engine := NewRuleEngine(nil)
	assert.True(t, engine.IsEmpty())

	engine.Build([]KeywordRule{
		{Category: "Groceries", Keywords: []KeywordPattern{ParseKeyword("tesco")}},
	})

	assert.False(t, engine.IsEmpty())
	assert.Equal(t, 1, engine.RuleCount())
	result := engine.Match("TESCO EXPRESS")
	require.NotNil(t, result)
	assert.Equal(t, "Groceries", result.Category)
}

// Benchmark: Aho-Corasick over a large rule table
func BenchmarkRuleEngine_Match(b *testing.B) {
	rules := make([]KeywordRule, 1000)
	for i := 0; i < 1000; i++ {
		rules[i] = KeywordRule{
			Category: fmt.Sprintf("Category %d", i),
			Keywords: []KeywordPattern{ParseKeyword(fmt.Sprintf("merchant%d", i))},
		}
	}
	rules[500] = KeywordRule{
		Category: "Transportation",
		Keywords: []KeywordPattern{ParseKeyword("revolut")},
	}

	engine := NewRuleEngine(rules)
	input := "CARD PURCHASE 27/12/2025 CAR WAL CRT DEB REVOLUT LONDON GB"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Match(input)
	}
}

// Benchmark: naive scan for comparison
func BenchmarkNaiveKeywordScan(b *testing.B) {
	patterns := make([]string, 1000)
	for i := 0; i < 1000; i++ {
		patterns[i] = fmt.Sprintf("merchant%d", i)
	}
	patterns[500] = "revolut"

	input := strings.ToLower("CARD PURCHASE 27/12/2025 CAR WAL CRT DEB REVOLUT LONDON GB")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, pattern := range patterns {
			if strings.Contains(input, pattern) {
				break
			}
		}
	}
}

// Benchmark: batch categorization
func BenchmarkRuleEngine_MatchBatch(b *testing.B) {
	engine := NewRuleEngine(DefaultKeywordRules())

	descriptions := make([]string, 100)
	for i := 0; i < 100; i++ {
		switch i % 4 {
		case 0:
			descriptions[i] = "STARBUCKS #1234"
		case 1:
			descriptions[i] = "NETFLIX.COM SUBSCRIPTION"
		case 2:
			descriptions[i] = "SHELL OIL 4412"
		default:
			descriptions[i] = fmt.Sprintf("RANDOM PURCHASE %d", i)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.MatchBatch(descriptions)
	}
}
