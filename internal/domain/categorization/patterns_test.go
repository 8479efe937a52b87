package categorization

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternEntry(entity, category, subcategory string, amount float64, date time.Time) Transaction {
	return Transaction{
		ID:          uuid.New(),
		Date:        date,
		Entity:      entity,
		Amount:      decimal.NewFromFloat(amount),
		Category:    category,
		Subcategory: subcategory,
	}
}

// Test merchant fingerprint patterns
func TestPatternLearner_Merchant(t *testing.T) {
	learner := NewPatternLearner()
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	learner.Learn([]Transaction{
		patternEntry("NETFLIX.COM", "Entertainment", "Streaming", -15.99, base),
		patternEntry("NETFLIX.COM", "Entertainment", "Streaming", -15.99, base.AddDate(0, 1, 0)),
		patternEntry("NETFLIX.COM", "Entertainment", "Streaming", -15.99, base.AddDate(0, 2, 0)),
	})

	t.Run("three occurrences qualify", func(t *testing.T) {
		result := learner.Categorize(Transaction{Entity: "NETFLIX.COM"})
		require.NotNil(t, result)
		assert.Equal(t, "Entertainment", result.Category)
		assert.Equal(t, "Streaming", result.Subcategory)
		assert.GreaterOrEqual(t, result.Confidence, 70)
		assert.Equal(t, MethodHistoricalPattern, result.Method)
	})

	t.Run("two occurrences never qualify", func(t *testing.T) {
		sparse := NewPatternLearner()
		sparse.Learn([]Transaction{
			patternEntry("HULU.COM", "Entertainment", "", -7.99, base),
			patternEntry("HULU.COM", "Entertainment", "", -7.99, base.AddDate(0, 1, 0)),
		})
		assert.Nil(t, sparse.Categorize(Transaction{Entity: "HULU.COM"}))
	})

	t.Run("confidence grows with frequency up to 95", func(t *testing.T) {
		heavy := NewPatternLearner()
		var history []Transaction
		for i := 0; i < 10; i++ {
			history = append(history, patternEntry("SPOTIFY AB", "Entertainment", "Streaming", -9.99, base.AddDate(0, i, 0)))
		}
		heavy.Learn(history)

		result := heavy.Categorize(Transaction{Entity: "SPOTIFY AB"})
		require.NotNil(t, result)
		assert.Equal(t, 95, result.Confidence)
	})
}

// Test recurring description patterns and interval classification
func TestPatternLearner_Recurring(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		gap      func(i int) time.Time
		interval RecurrenceInterval
	}{
		{"monthly", func(i int) time.Time { return base.AddDate(0, i, 0) }, IntervalMonthly},
		{"weekly", func(i int) time.Time { return base.AddDate(0, 0, 7*i) }, IntervalWeekly},
		{"daily", func(i int) time.Time { return base.AddDate(0, 0, i) }, IntervalDaily},
		{"yearly", func(i int) time.Time { return base.AddDate(i, 0, 0) }, IntervalYearly},
	}

	// A description with no significant tokens cannot form a merchant
	// fingerprint, so only the recurring index can answer.
	const entity = "WEB PAYMENT TO CO OP"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			learner := NewPatternLearner()
			var history []Transaction
			for i := 0; i < 4; i++ {
				history = append(history, patternEntry(entity, "Health & Fitness", "Gym", -30, tt.gap(i)))
			}
			learner.Learn(history)

			result := learner.Categorize(Transaction{Entity: entity})
			require.NotNil(t, result)
			assert.Equal(t, "Health & Fitness", result.Category)
			assert.Contains(t, result.Reason, string(tt.interval))
		})
	}
}

// Test amount-range fallback
func TestPatternLearner_Amount(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	learner := NewPatternLearner()
	learner.Learn([]Transaction{
		patternEntry("LANDLORD LLC A", "Housing", "Rent", -1500, base),
		patternEntry("PROPERTY MGMT B", "Housing", "Rent", -1520, base.AddDate(0, 1, 0)),
		patternEntry("RENTAL OFFICE C", "Housing", "Rent", -1480, base.AddDate(0, 2, 0)),
	})

	t.Run("amount within tolerance matches when dated", func(t *testing.T) {
		candidate := Transaction{
			Entity: "BRAND NEW LANDLORD",
			Amount: decimal.NewFromInt(-1510),
			Date:   base.AddDate(0, 3, 0),
		}
		result := learner.Categorize(candidate)
		require.NotNil(t, result)
		assert.Equal(t, "Housing", result.Category)
	})

	t.Run("amount matching requires a date", func(t *testing.T) {
		candidate := Transaction{
			Entity: "BRAND NEW LANDLORD",
			Amount: decimal.NewFromInt(-1510),
		}
		assert.Nil(t, learner.Categorize(candidate))
	})

	t.Run("amount outside tolerance misses", func(t *testing.T) {
		candidate := Transaction{
			Entity: "BRAND NEW LANDLORD",
			Amount: decimal.NewFromInt(-500),
			Date:   base,
		}
		assert.Nil(t, learner.Categorize(candidate))
	})
}

// Test pattern listings
func TestPatternLearner_Patterns(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	learner := NewPatternLearner()

	var history []Transaction
	for i := 0; i < 4; i++ {
		history = append(history, patternEntry("NETFLIX.COM", "Entertainment", "Streaming", -15.99, base.AddDate(0, i, 0)))
	}
	history = append(history,
		patternEntry("ONE OFF SHOP", "Shopping", "", -12, base),
	)
	learner.Learn(history)

	patterns := learner.Patterns()
	require.NotEmpty(t, patterns)

	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Confidence, patterns[i].Confidence)
	}
	for _, p := range patterns {
		assert.GreaterOrEqual(t, p.Count, 3)
		assert.NotEqual(t, "Shopping", p.Category)
	}
}

// Test reset
func TestPatternLearner_Reset(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	learner := NewPatternLearner()
	for i := 0; i < 3; i++ {
		learner.Learn([]Transaction{patternEntry("NETFLIX.COM", "Entertainment", "", -15.99, base.AddDate(0, i, 0))})
	}
	require.NotNil(t, learner.Categorize(Transaction{Entity: "NETFLIX.COM"}))

	learner.Reset()
	assert.Nil(t, learner.Categorize(Transaction{Entity: "NETFLIX.COM"}))
	assert.Empty(t, learner.Patterns())
}
