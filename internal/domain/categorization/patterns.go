package categorization

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// minPatternCount is the occurrence threshold below which a mined pattern is
// never actionable or exposed.
const minPatternCount = 3

// amountTolerance is the relative tolerance around a pattern's mean amount.
const amountTolerance = 0.2

// RecurrenceInterval classifies how often a recurring description appears.
type RecurrenceInterval string

const (
	IntervalDaily   RecurrenceInterval = "daily"
	IntervalWeekly  RecurrenceInterval = "weekly"
	IntervalMonthly RecurrenceInterval = "monthly"
	IntervalYearly  RecurrenceInterval = "yearly"
	IntervalUnknown RecurrenceInterval = "unknown"
)

// MerchantPattern aggregates history for one merchant fingerprint: the first
// few significant tokens of the normalized description.
type MerchantPattern struct {
	Fingerprint string
	Category    string
	Subcategory string
	Frequency   int
	LastSeen    time.Time
	Amounts     []decimal.Decimal
}

// RecurringPattern aggregates history for one full normalized description.
type RecurringPattern struct {
	Description string
	Category    string
	Subcategory string
	Occurrences int
	Interval    RecurrenceInterval
	seenDates   map[string]time.Time
}

// AmountPattern aggregates amount statistics per (category, subcategory).
type AmountPattern struct {
	Category    string
	Subcategory string
	Min         decimal.Decimal
	Max         decimal.Decimal
	Sum         decimal.Decimal
	Frequency   int
}

// Mean is the running average amount, computed on read.
func (p *AmountPattern) Mean() decimal.Decimal {
	if p.Frequency == 0 {
		return decimal.Zero
	}
	return p.Sum.Div(decimal.NewFromInt(int64(p.Frequency)))
}

// PatternSummary is one qualifying pattern in a listing.
type PatternSummary struct {
	Type        string // "merchant", "recurring" or "amount"
	Key         string
	Category    string
	Subcategory string
	Count       int
	Confidence  int
}

// PatternLearner mines merchant, recurring and amount patterns from
// categorized history (Phase 2d). It is mutable and owned by a single
// learning session; concurrent folding must be serialized by the caller.
type PatternLearner struct {
	merchants map[string]*MerchantPattern
	recurring map[string]*RecurringPattern
	amounts   map[string]*AmountPattern
}

// NewPatternLearner creates an empty learner.
func NewPatternLearner() *PatternLearner {
	l := &PatternLearner{}
	l.Reset()
	return l
}

// Reset clears every mined index.
func (l *PatternLearner) Reset() {
	l.merchants = make(map[string]*MerchantPattern)
	l.recurring = make(map[string]*RecurringPattern)
	l.amounts = make(map[string]*AmountPattern)
}

// merchantFingerprint is the first up-to-three significant tokens of a
// normalized description, joined by spaces. Empty when nothing significant
// remains.
func merchantFingerprint(normalized string) string {
	tokens := significantTokens(normalized)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}

// Learn folds every categorized history entry into the three indices.
func (l *PatternLearner) Learn(history []Transaction) {
	for _, tx := range history {
		if !tx.IsCategorized() {
			continue
		}
		normalized := Normalize(tx.Entity)
		l.learnMerchant(tx, normalized)
		l.learnRecurring(tx, normalized)
		l.learnAmount(tx)
	}
}

func (l *PatternLearner) learnMerchant(tx Transaction, normalized string) {
	fingerprint := merchantFingerprint(normalized)
	if fingerprint == "" {
		return
	}

	p, ok := l.merchants[fingerprint]
	if !ok {
		p = &MerchantPattern{
			Fingerprint: fingerprint,
			Category:    tx.Category,
			Subcategory: tx.Subcategory,
		}
		l.merchants[fingerprint] = p
	}
	p.Frequency++
	if tx.Date.After(p.LastSeen) {
		p.LastSeen = tx.Date
	}
	if !tx.Amount.IsZero() {
		p.Amounts = append(p.Amounts, tx.Amount)
	}
}

func (l *PatternLearner) learnRecurring(tx Transaction, normalized string) {
	if normalized == "" {
		return
	}

	p, ok := l.recurring[normalized]
	if !ok {
		p = &RecurringPattern{
			Description: normalized,
			Category:    tx.Category,
			Subcategory: tx.Subcategory,
			Interval:    IntervalUnknown,
			seenDates:   make(map[string]time.Time),
		}
		l.recurring[normalized] = p
	}
	p.Occurrences++
	if !tx.Date.IsZero() {
		p.seenDates[tx.Date.Format("2006-01-02")] = tx.Date
		p.Interval = classifyInterval(p.seenDates)
	}
}

func (l *PatternLearner) learnAmount(tx Transaction) {
	if tx.Amount.IsZero() {
		return
	}
	key := tx.Category + "|" + tx.Subcategory

	p, ok := l.amounts[key]
	if !ok {
		p = &AmountPattern{
			Category:    tx.Category,
			Subcategory: tx.Subcategory,
			Min:         tx.Amount,
			Max:         tx.Amount,
		}
		l.amounts[key] = p
	}
	if tx.Amount.LessThan(p.Min) {
		p.Min = tx.Amount
	}
	if tx.Amount.GreaterThan(p.Max) {
		p.Max = tx.Amount
	}
	p.Sum = p.Sum.Add(tx.Amount)
	p.Frequency++
}

// classifyInterval buckets the average gap between sorted distinct seen
// dates: daily <=2d, weekly <=10d, monthly <=40d, else yearly.
func classifyInterval(seen map[string]time.Time) RecurrenceInterval {
	if len(seen) < 2 {
		return IntervalUnknown
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	totalDays := 0.0
	for i := 1; i < len(dates); i++ {
		totalDays += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	avg := totalDays / float64(len(dates)-1)

	switch {
	case avg <= 2:
		return IntervalDaily
	case avg <= 10:
		return IntervalWeekly
	case avg <= 40:
		return IntervalMonthly
	default:
		return IntervalYearly
	}
}

// Categorize suggests a category for a candidate transaction from mined
// patterns, trying merchant fingerprint, then recurring description, then
// amount ranges (only when the candidate carries a date). Patterns below
// three occurrences never qualify.
func (l *PatternLearner) Categorize(candidate Transaction) *CategorySuggestion {
	normalized := Normalize(candidate.Entity)

	if fingerprint := merchantFingerprint(normalized); fingerprint != "" {
		if p, ok := l.merchants[fingerprint]; ok && p.Frequency >= minPatternCount {
			confidence := 70 + 5*p.Frequency
			if confidence > 95 {
				confidence = 95
			}
			return &CategorySuggestion{
				Category:    p.Category,
				Subcategory: p.Subcategory,
				Confidence:  clampConfidence(confidence),
				Reason:      fmt.Sprintf("merchant %q seen %d times", p.Fingerprint, p.Frequency),
				Method:      MethodHistoricalPattern,
			}
		}
	}

	if p, ok := l.recurring[normalized]; ok && p.Occurrences >= minPatternCount {
		confidence := 65 + 5*p.Occurrences
		if confidence > 92 {
			confidence = 92
		}
		return &CategorySuggestion{
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Confidence:  clampConfidence(confidence),
			Reason:      fmt.Sprintf("%s recurring pattern with %d occurrences", p.Interval, p.Occurrences),
			Method:      MethodHistoricalPattern,
		}
	}

	if !candidate.Date.IsZero() && !candidate.Amount.IsZero() {
		if p := l.matchAmount(candidate.Amount); p != nil {
			confidence := int(math.Round(60 + 2*float64(p.Frequency)))
			return &CategorySuggestion{
				Category:    p.Category,
				Subcategory: p.Subcategory,
				Confidence:  clampConfidence(confidence),
				Reason:      fmt.Sprintf("amount near the %s average of %s", p.Category, p.Mean().StringFixed(2)),
				Method:      MethodHistoricalPattern,
			}
		}
	}

	return nil
}

// matchAmount finds the qualifying amount pattern whose mean is within ±20%
// of the candidate amount, preferring the most frequent one.
func (l *PatternLearner) matchAmount(amount decimal.Decimal) *AmountPattern {
	var best *AmountPattern
	for _, p := range l.amounts {
		if p.Frequency < minPatternCount {
			continue
		}
		mean := p.Mean()
		if mean.IsZero() {
			continue
		}
		relative, _ := amount.Sub(mean).Abs().Div(mean.Abs()).Float64()
		if relative > amountTolerance {
			continue
		}
		if best == nil || p.Frequency > best.Frequency {
			best = p
		}
	}
	return best
}

// Patterns lists every qualifying pattern sorted by confidence descending.
func (l *PatternLearner) Patterns() []PatternSummary {
	var out []PatternSummary

	for _, p := range l.merchants {
		if p.Frequency < minPatternCount {
			continue
		}
		confidence := 70 + 5*p.Frequency
		if confidence > 95 {
			confidence = 95
		}
		out = append(out, PatternSummary{
			Type:        "merchant",
			Key:         p.Fingerprint,
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Count:       p.Frequency,
			Confidence:  clampConfidence(confidence),
		})
	}
	for _, p := range l.recurring {
		if p.Occurrences < minPatternCount {
			continue
		}
		confidence := 65 + 5*p.Occurrences
		if confidence > 92 {
			confidence = 92
		}
		out = append(out, PatternSummary{
			Type:        "recurring",
			Key:         p.Description,
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Count:       p.Occurrences,
			Confidence:  clampConfidence(confidence),
		})
	}
	for _, p := range l.amounts {
		if p.Frequency < minPatternCount {
			continue
		}
		out = append(out, PatternSummary{
			Type:        "amount",
			Key:         p.Category + "|" + p.Subcategory,
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Count:       p.Frequency,
			Confidence:  clampConfidence(int(math.Round(60 + 2*float64(p.Frequency)))),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
