package categorization

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MatchKind says how a keyword is compared against a normalized description.
// The kind is decided once when a rule table is loaded, never re-parsed per
// comparison.
type MatchKind int

const (
	// KindSubstring matches anywhere in the description (unmarked keyword).
	KindSubstring MatchKind = iota
	// KindPrefix matches at the start of the description ("text*").
	KindPrefix
	// KindSuffix matches at the end of the description ("*text").
	KindSuffix
	// KindExact matches the whole description.
	KindExact
)

// KeywordPattern is a single keyword with its pre-decided match kind.
type KeywordPattern struct {
	Kind MatchKind
	Text string
}

// KeywordRule maps keyword phrases to a category and optional subcategory.
// Higher-priority rules win; ties break by declaration order.
type KeywordRule struct {
	Category    string
	Subcategory string
	Keywords    []KeywordPattern
	Priority    int
}

// ParseKeyword turns a raw keyword into a tagged pattern. A trailing "*"
// marks a prefix match, a leading "*" a suffix match; both markers (or none)
// mean substring-anywhere. The text itself is normalized so it compares
// against normalized descriptions.
func ParseKeyword(raw string) KeywordPattern {
	prefix := strings.HasSuffix(raw, "*")
	suffix := strings.HasPrefix(raw, "*")
	text := Normalize(strings.Trim(raw, "*"))

	switch {
	case prefix && !suffix:
		return KeywordPattern{Kind: KindPrefix, Text: text}
	case suffix && !prefix:
		return KeywordPattern{Kind: KindSuffix, Text: text}
	default:
		return KeywordPattern{Kind: KindSubstring, Text: text}
	}
}

// matches reports whether the keyword applies to a normalized description.
func (k KeywordPattern) matches(normalized string) bool {
	if k.Text == "" || normalized == "" {
		return false
	}
	switch k.Kind {
	case KindPrefix:
		return strings.HasPrefix(normalized, k.Text)
	case KindSuffix:
		return strings.HasSuffix(normalized, k.Text)
	case KindExact:
		return normalized == k.Text
	default:
		return strings.Contains(normalized, k.Text)
	}
}

// wildcarded reports whether the keyword carried a wildcard marker; unmarked
// keywords earn a confidence bonus for being stronger evidence.
func (k KeywordPattern) wildcarded() bool {
	return k.Kind == KindPrefix || k.Kind == KindSuffix
}

// keywordSuggestion builds the Phase 2a suggestion for a matched rule.
// Base 75, +10 for an unmarked keyword, +5 for a multi-word phrase.
func keywordSuggestion(rule KeywordRule, kw KeywordPattern) *CategorySuggestion {
	confidence := 75
	if !kw.wildcarded() {
		confidence += 10
	}
	if len(strings.Fields(kw.Text)) > 1 {
		confidence += 5
	}

	return &CategorySuggestion{
		Category:    rule.Category,
		Subcategory: rule.Subcategory,
		Confidence:  clampConfidence(confidence),
		Reason:      fmt.Sprintf("keyword %q matched category rule", kw.Text),
		Method:      MethodKeywordRule,
	}
}

// sortRules orders rules by priority descending, stable on declaration order.
func sortRules(rules []KeywordRule) []KeywordRule {
	sorted := make([]KeywordRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}

var (
	defaultEngine     *RuleEngine
	defaultEngineOnce sync.Once
)

// MatchKeywordRule categorizes a description against keyword rules (Phase
// 2a). A nil custom rule set uses the built-in default table through a shared
// Aho-Corasick engine; custom rules are scanned directly in priority order.
// Returns nil when no keyword matches.
func MatchKeywordRule(description string, customRules []KeywordRule) *CategorySuggestion {
	normalized := Normalize(description)
	if normalized == "" {
		return nil
	}

	if customRules == nil {
		defaultEngineOnce.Do(func() {
			defaultEngine = NewRuleEngine(DefaultKeywordRules())
		})
		return defaultEngine.Match(description)
	}

	for _, rule := range sortRules(customRules) {
		for _, kw := range rule.Keywords {
			if kw.matches(normalized) {
				return keywordSuggestion(rule, kw)
			}
		}
	}
	return nil
}

// LearnKeywordRule derives a keyword rule from one manually-categorized
// transaction and folds it into the given rule set. Tokens longer than two
// characters become substring keywords; when a rule for the same
// (category, subcategory) already exists it is extended with unseen tokens.
// Returns the (possibly grown) rule set; the input slice is not mutated.
func LearnKeywordRule(tx Transaction, rules []KeywordRule) []KeywordRule {
	if !tx.IsCategorized() || !tx.IsManuallyEdited {
		return rules
	}

	var keywords []KeywordPattern
	for _, tok := range tokenize(Normalize(tx.Entity)) {
		if len(tok) > 2 {
			keywords = append(keywords, KeywordPattern{Kind: KindSubstring, Text: tok})
		}
	}
	if len(keywords) == 0 {
		return rules
	}

	out := make([]KeywordRule, len(rules))
	copy(out, rules)

	for i, rule := range out {
		if rule.Category == tx.Category && rule.Subcategory == tx.Subcategory {
			existing := make(map[string]bool, len(rule.Keywords))
			for _, kw := range rule.Keywords {
				existing[kw.Text] = true
			}
			merged := make([]KeywordPattern, len(rule.Keywords))
			copy(merged, rule.Keywords)
			for _, kw := range keywords {
				if !existing[kw.Text] {
					merged = append(merged, kw)
					existing[kw.Text] = true
				}
			}
			out[i].Keywords = merged
			return out
		}
	}

	// User-derived rules outrank the static defaults, mirroring how user
	// merchants outrank system merchants.
	return append(out, KeywordRule{
		Category:    tx.Category,
		Subcategory: tx.Subcategory,
		Keywords:    keywords,
		Priority:    100,
	})
}

// MergeKeywordRules unions two rule sets by (category, subcategory) key,
// keeping the higher priority and the union of keywords. Rules from a keep
// their order; rules only present in b follow.
func MergeKeywordRules(a, b []KeywordRule) []KeywordRule {
	type key struct{ category, subcategory string }

	out := make([]KeywordRule, len(a))
	copy(out, a)

	index := make(map[key]int, len(out))
	for i, rule := range out {
		index[key{rule.Category, rule.Subcategory}] = i
	}

	for _, rule := range b {
		k := key{rule.Category, rule.Subcategory}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, rule)
			continue
		}

		if rule.Priority > out[i].Priority {
			out[i].Priority = rule.Priority
		}

		seen := make(map[KeywordPattern]bool, len(out[i].Keywords))
		merged := make([]KeywordPattern, len(out[i].Keywords))
		copy(merged, out[i].Keywords)
		for _, kw := range merged {
			seen[kw] = true
		}
		for _, kw := range rule.Keywords {
			if !seen[kw] {
				merged = append(merged, kw)
				seen[kw] = true
			}
		}
		out[i].Keywords = merged
	}

	return out
}
