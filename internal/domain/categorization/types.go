// Package categorization assigns spending categories to transaction
// descriptions through a progressive pipeline of recognizers ordered by
// confidence: exact history match, keyword rules, fuzzy matching, TF-IDF
// similarity and learned historical patterns.
package categorization

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method identifies which recognizer produced a suggestion.
type Method string

const (
	MethodExactMatch        Method = "exact-match"
	MethodKeywordRule       Method = "keyword-rule"
	MethodFuzzyMatch        Method = "fuzzy-match"
	MethodTFIDF             Method = "tfidf"
	MethodHistoricalPattern Method = "historical-pattern"
	MethodMLPrediction      Method = "ml-prediction"
)

// Transaction is a single financial transaction record. The caller owns the
// lifecycle; the engine only reads history entries and never deletes them.
// An empty Category means the transaction is uncategorized.
type Transaction struct {
	ID               uuid.UUID       `csv:"id" json:"id"`
	Date             time.Time       `csv:"-" json:"date"`
	Entity           string          `csv:"entity" json:"entity"`
	Amount           decimal.Decimal `csv:"amount" json:"amount"`
	Currency         string          `csv:"currency" json:"currency"`
	Category         string          `csv:"category" json:"category,omitempty"`
	Subcategory      string          `csv:"subcategory" json:"subcategory,omitempty"`
	Confidence       int             `csv:"confidence" json:"confidence,omitempty"`
	IsManuallyEdited bool            `csv:"manually_edited" json:"is_manually_edited"`
	Notes            string          `csv:"notes" json:"notes,omitempty"`
}

// IsCategorized reports whether the transaction carries a category and can
// therefore serve as training history.
func (t Transaction) IsCategorized() bool {
	return t.Category != ""
}

// CategorySuggestion is the ephemeral result of one categorization attempt.
type CategorySuggestion struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Confidence  int    `json:"confidence"` // 0-100
	Reason      string `json:"reason"`
	Method      Method `json:"method"`
}

// clampConfidence keeps every confidence inside [0,100].
func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// categorizedHistory filters history down to entries carrying a category.
func categorizedHistory(history []Transaction) []Transaction {
	out := make([]Transaction, 0, len(history))
	for _, tx := range history {
		if tx.IsCategorized() {
			out = append(out, tx)
		}
	}
	return out
}
