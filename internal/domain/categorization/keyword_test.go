package categorization

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test keyword parsing into tagged patterns
func TestParseKeyword(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind MatchKind
		text string
	}{
		{"plain keyword is substring", "walmart", KindSubstring, "walmart"},
		{"trailing star is prefix", "uber*", KindPrefix, "uber"},
		{"leading star is suffix", "*pharmacy", KindSuffix, "pharmacy"},
		{"both stars fall back to substring", "*market*", KindSubstring, "market"},
		{"text is normalized", "WHOLE-FOODS", KindSubstring, "whole foods"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw := ParseKeyword(tt.raw)
			assert.Equal(t, tt.kind, kw.Kind)
			assert.Equal(t, tt.text, kw.Text)
		})
	}
}

// Test matching against the built-in rule table
func TestMatchKeywordRule_Defaults(t *testing.T) {
	t.Run("walmart maps to groceries", func(t *testing.T) {
		result := MatchKeywordRule("WALMART STORE 123", nil)
		require.NotNil(t, result)
		assert.Equal(t, "Groceries", result.Category)
		assert.GreaterOrEqual(t, result.Confidence, 75)
		assert.Equal(t, MethodKeywordRule, result.Method)
	})

	t.Run("starbucks maps to coffee shops", func(t *testing.T) {
		result := MatchKeywordRule("STARBUCKS #456", nil)
		require.NotNil(t, result)
		assert.Equal(t, "Food & Dining", result.Category)
		assert.Equal(t, "Coffee Shops", result.Subcategory)
	})

	t.Run("no keyword matches", func(t *testing.T) {
		assert.Nil(t, MatchKeywordRule("ZZXQW NOWHERE", nil))
	})

	t.Run("empty description", func(t *testing.T) {
		assert.Nil(t, MatchKeywordRule("", nil))
	})
}

// Test confidence scoring for matched keywords
func TestMatchKeywordRule_Confidence(t *testing.T) {
	rules := []KeywordRule{
		{Category: "Transportation", Keywords: []KeywordPattern{ParseKeyword("uber*")}, Priority: 10},
		{Category: "Groceries", Keywords: []KeywordPattern{ParseKeyword("kroger")}, Priority: 10},
		{Category: "Food & Dining", Keywords: []KeywordPattern{ParseKeyword("whole foods")}, Priority: 10},
	}

	t.Run("wildcard keyword scores base 75", func(t *testing.T) {
		result := MatchKeywordRule("UBER TRIP 9921", rules)
		require.NotNil(t, result)
		assert.Equal(t, 75, result.Confidence)
	})

	t.Run("unmarked keyword earns +10", func(t *testing.T) {
		result := MatchKeywordRule("KROGER 0455", rules)
		require.NotNil(t, result)
		assert.Equal(t, 85, result.Confidence)
	})

	t.Run("multi-word unmarked keyword earns +15", func(t *testing.T) {
		result := MatchKeywordRule("WHOLE FOODS MKT", rules)
		require.NotNil(t, result)
		assert.Equal(t, 90, result.Confidence)
	})
}

// Test priority ordering for custom rules
func TestMatchKeywordRule_Priority(t *testing.T) {
	rules := []KeywordRule{
		{Category: "Shopping", Keywords: []KeywordPattern{ParseKeyword("amazon")}, Priority: 10},
		{Category: "Entertainment", Subcategory: "Streaming", Keywords: []KeywordPattern{ParseKeyword("amazon prime")}, Priority: 50},
	}

	result := MatchKeywordRule("AMAZON PRIME VIDEO", rules)
	require.NotNil(t, result)
	assert.Equal(t, "Entertainment", result.Category)
}

// Test deriving rules from manual corrections
func TestLearnKeywordRule(t *testing.T) {
	manual := Transaction{
		ID:               uuid.New(),
		Entity:           "BLUE BOTTLE COFFEE",
		Category:         "Food & Dining",
		Subcategory:      "Coffee Shops",
		IsManuallyEdited: true,
	}

	t.Run("creates a new high-priority rule", func(t *testing.T) {
		rules := LearnKeywordRule(manual, nil)
		require.Len(t, rules, 1)
		assert.Equal(t, "Food & Dining", rules[0].Category)
		assert.Equal(t, 100, rules[0].Priority)

		result := MatchKeywordRule("BLUE BOTTLE COFFEE SF", rules)
		require.NotNil(t, result)
		assert.Equal(t, "Coffee Shops", result.Subcategory)
	})

	t.Run("extends the existing rule for the same category", func(t *testing.T) {
		rules := LearnKeywordRule(manual, nil)
		other := manual
		other.Entity = "STUMPTOWN ROASTERS"
		rules = LearnKeywordRule(other, rules)

		require.Len(t, rules, 1)
		assert.Greater(t, len(rules[0].Keywords), 3)
	})

	t.Run("ignores automatic categorizations", func(t *testing.T) {
		auto := manual
		auto.IsManuallyEdited = false
		assert.Empty(t, LearnKeywordRule(auto, nil))
	})

	t.Run("ignores uncategorized transactions", func(t *testing.T) {
		blank := manual
		blank.Category = ""
		assert.Empty(t, LearnKeywordRule(blank, nil))
	})

	t.Run("does not mutate the input slice", func(t *testing.T) {
		original := []KeywordRule{
			{Category: "Shopping", Keywords: []KeywordPattern{ParseKeyword("target")}},
		}
		_ = LearnKeywordRule(manual, original)
		assert.Len(t, original, 1)
	})
}

// Test merging two rule sets
func TestMergeKeywordRules(t *testing.T) {
	a := []KeywordRule{
		{Category: "Groceries", Keywords: []KeywordPattern{ParseKeyword("aldi")}, Priority: 60},
	}
	b := []KeywordRule{
		{Category: "Groceries", Keywords: []KeywordPattern{ParseKeyword("lidl")}, Priority: 80},
		{Category: "Travel", Keywords: []KeywordPattern{ParseKeyword("airbnb")}, Priority: 40},
	}

	merged := MergeKeywordRules(a, b)
	require.Len(t, merged, 2)

	assert.Equal(t, "Groceries", merged[0].Category)
	assert.Equal(t, 80, merged[0].Priority)
	assert.Len(t, merged[0].Keywords, 2)

	assert.Equal(t, "Travel", merged[1].Category)
}
