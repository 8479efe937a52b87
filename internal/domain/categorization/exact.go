package categorization

import "fmt"

// ExactMatch looks up the normalized description in categorized history
// (Phase 1). Manually-edited matches are preferred over automatic ones, and
// within the preferred subset the first entry in caller-supplied order wins;
// history order approximates recency and is deliberately not re-sorted by
// timestamp. Returns nil when nothing matches.
func ExactMatch(description string, history []Transaction) *CategorySuggestion {
	normalized := Normalize(description)
	if normalized == "" || len(history) == 0 {
		return nil
	}

	var matches []Transaction
	for _, tx := range history {
		if tx.IsCategorized() && Normalize(tx.Entity) == normalized {
			matches = append(matches, tx)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	var manual []Transaction
	for _, tx := range matches {
		if tx.IsManuallyEdited {
			manual = append(manual, tx)
		}
	}

	preferred := matches
	if len(manual) > 0 {
		preferred = manual
	}
	best := preferred[0]

	confidence := 95
	reason := fmt.Sprintf("exact match with %d previous transaction(s)", len(matches))
	if best.IsManuallyEdited {
		confidence += 5
		reason += ", user-confirmed"
	}

	return &CategorySuggestion{
		Category:    best.Category,
		Subcategory: best.Subcategory,
		Confidence:  clampConfidence(confidence),
		Reason:      reason,
		Method:      MethodExactMatch,
	}
}
