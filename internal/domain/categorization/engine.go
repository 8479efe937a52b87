package categorization

import (
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// keywordRef points a matched automaton pattern back to its rule and keyword.
type keywordRef struct {
	ruleIdx int
	kwIdx   int
}

// RuleEngine matches descriptions against a keyword rule table using the
// Aho-Corasick algorithm: one pass through the text finds every keyword
// regardless of how many rules are loaded. Prefix/suffix keywords are
// verified by position after the substring hit.
type RuleEngine struct {
	mu       sync.RWMutex
	rules    []KeywordRule // priority-sorted, declaration-stable
	matcher  *ahocorasick.Matcher
	patterns []string
	refs     [][]keywordRef // per unique pattern, ordered by rule then keyword
}

// NewRuleEngine builds an engine over a rule table.
func NewRuleEngine(rules []KeywordRule) *RuleEngine {
	e := &RuleEngine{}
	e.Build(rules)
	return e
}

// Build (re)constructs the automaton. Duplicate keyword texts across rules
// are grouped so one hit can resolve against every owning rule.
func (e *RuleEngine) Build(rules []KeywordRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = sortRules(rules)

	patternToIdx := make(map[string]int)
	e.patterns = e.patterns[:0]
	e.refs = e.refs[:0]

	for ri, rule := range e.rules {
		for ki, kw := range rule.Keywords {
			if kw.Text == "" {
				continue
			}
			idx, ok := patternToIdx[kw.Text]
			if !ok {
				idx = len(e.patterns)
				patternToIdx[kw.Text] = idx
				e.patterns = append(e.patterns, kw.Text)
				e.refs = append(e.refs, nil)
			}
			e.refs[idx] = append(e.refs[idx], keywordRef{ruleIdx: ri, kwIdx: ki})
		}
	}

	if len(e.patterns) == 0 {
		e.matcher = nil
		return
	}

	bytePatterns := make([][]byte, len(e.patterns))
	for i, p := range e.patterns {
		bytePatterns[i] = []byte(p)
	}
	e.matcher = ahocorasick.NewMatcher(bytePatterns)
}

// Match finds the winning rule for a description: the highest-priority rule
// with any matching keyword, ties broken by declaration order. Returns nil
// when nothing matches.
func (e *RuleEngine) Match(description string) *CategorySuggestion {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.matchNormalized(Normalize(description))
}

// MatchBatch categorizes multiple descriptions under a single read lock.
func (e *RuleEngine) MatchBatch(descriptions []string) []*CategorySuggestion {
	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]*CategorySuggestion, len(descriptions))
	for i, desc := range descriptions {
		results[i] = e.matchNormalized(Normalize(desc))
	}
	return results
}

func (e *RuleEngine) matchNormalized(normalized string) *CategorySuggestion {
	if e.matcher == nil || normalized == "" {
		return nil
	}

	hits := e.matcher.Match([]byte(normalized))
	if len(hits) == 0 {
		return nil
	}

	bestRule, bestKw := -1, -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.refs) {
			continue
		}
		for _, ref := range e.refs[idx] {
			kw := e.rules[ref.ruleIdx].Keywords[ref.kwIdx]
			// The automaton proves substring containment; positional kinds
			// still need their anchor checked.
			if kw.Kind != KindSubstring && !kw.matches(normalized) {
				continue
			}
			if bestRule == -1 || ref.ruleIdx < bestRule ||
				(ref.ruleIdx == bestRule && ref.kwIdx < bestKw) {
				bestRule, bestKw = ref.ruleIdx, ref.kwIdx
			}
		}
	}
	if bestRule == -1 {
		return nil
	}

	rule := e.rules[bestRule]
	return keywordSuggestion(rule, rule.Keywords[bestKw])
}

// RuleCount returns the number of rules loaded.
func (e *RuleEngine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// IsEmpty reports whether the engine has no keywords loaded.
func (e *RuleEngine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher == nil
}
