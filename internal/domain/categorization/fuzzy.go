package categorization

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
)

// CategoryIncome is the category name treated as the income pool by the
// fuzzy recognizer.
const CategoryIncome = "Income"

const (
	// fuzzyFloor is the hard minimum similarity below which no fuzzy match
	// is ever returned, regardless of the caller threshold.
	fuzzyFloor = 0.6
	// DefaultFuzzyThreshold applies when the caller passes a non-positive
	// threshold.
	DefaultFuzzyThreshold = 0.7
)

// SimilarTransaction pairs a history entry with its similarity to a query.
type SimilarTransaction struct {
	Transaction Transaction
	Similarity  float64
}

// fuzzySimilarity computes Levenshtein similarity in [0,1] between two
// already lower-cased strings: (maxLen - distance) / maxLen.
func fuzzySimilarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return float64(maxLen-distance) / float64(maxLen)
}

// FuzzyMatch finds the nearest categorized history entry by edit-distance
// similarity (Phase 2b). A supplied positive amount restricts the pool to
// income history; otherwise income entries are excluded. The best match must
// clear both the fixed 0.6 floor and the caller threshold. First-seen entries
// win similarity ties, so caller order stands in for recency.
func FuzzyMatch(description string, history []Transaction, amount *decimal.Decimal, threshold float64) *CategorySuggestion {
	query := strings.ToLower(strings.TrimSpace(description))
	if query == "" || len(history) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	incomeOnly := amount != nil && amount.IsPositive()

	var best *Transaction
	bestSimilarity := 0.0
	for i := range history {
		tx := &history[i]
		if !tx.IsCategorized() {
			continue
		}
		if incomeOnly != (tx.Category == CategoryIncome) {
			continue
		}

		similarity := fuzzySimilarity(query, strings.ToLower(strings.TrimSpace(tx.Entity)))
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = tx
		}
	}

	if best == nil || bestSimilarity < fuzzyFloor || bestSimilarity < threshold {
		return nil
	}

	confidence := int(math.Round(bestSimilarity * 100))
	if confidence < 60 {
		confidence = 60
	}

	return &CategorySuggestion{
		Category:    best.Category,
		Subcategory: best.Subcategory,
		Confidence:  clampConfidence(confidence),
		Reason:      fmt.Sprintf("similar to %q (%.0f%% match)", best.Entity, bestSimilarity*100),
		Method:      MethodFuzzyMatch,
	}
}

// TopSimilar returns the n most similar categorized transactions above the
// 0.6 floor, sorted by similarity descending.
func TopSimilar(description string, history []Transaction, n int) []SimilarTransaction {
	query := strings.ToLower(strings.TrimSpace(description))
	if query == "" || n <= 0 {
		return nil
	}

	var results []SimilarTransaction
	for _, tx := range categorizedHistory(history) {
		similarity := fuzzySimilarity(query, strings.ToLower(strings.TrimSpace(tx.Entity)))
		if similarity >= fuzzyFloor {
			results = append(results, SimilarTransaction{Transaction: tx, Similarity: similarity})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > n {
		results = results[:n]
	}
	return results
}
