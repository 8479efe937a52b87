package categorization

import (
	"log/slog"
)

// Policy controls how Phase 2 recognizer results are combined.
type Policy int

const (
	// PolicyFirstMatch stops at the first confident recognizer (default).
	PolicyFirstMatch Policy = iota
	// PolicyBestConfidence runs every selected recognizer and keeps the
	// highest-confidence suggestion.
	PolicyBestConfidence
)

// MLPredictor is the Phase 3 hook; the trainable classifier satisfies it.
type MLPredictor interface {
	Predict(description string) *CategorySuggestion
}

// PipelineOptions configures a Pipeline. The zero value yields the default
// rule table, the default method order keyword -> fuzzy -> TF-IDF -> pattern,
// first-match policy and default thresholds.
type PipelineOptions struct {
	Rules          []KeywordRule
	TFIDF          *TFIDFModel
	Learner        *PatternLearner
	Predictor      MLPredictor
	Methods        []Method
	Policy         Policy
	FuzzyThreshold float64
	TFIDFThreshold float64
	// WantML also consults Phase 3 when an earlier phase already answered,
	// keeping whichever suggestion is more confident.
	WantML bool
	Logger *slog.Logger
}

// Pipeline composes the recognizers in priority order with early exit:
// exact match first, then the selected Phase 2 methods, then the ML
// classifier when everything else is silent (or explicitly requested).
type Pipeline struct {
	opts   PipelineOptions
	engine *RuleEngine
	logger *slog.Logger
}

// defaultPhase2Order runs Phase 2 recognizers from strongest to weakest
// signal.
var defaultPhase2Order = []Method{
	MethodKeywordRule,
	MethodFuzzyMatch,
	MethodTFIDF,
	MethodHistoricalPattern,
}

// NewPipeline builds a pipeline. A custom rule set is compiled into its own
// Aho-Corasick engine once, up front.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Methods == nil {
		opts.Methods = defaultPhase2Order
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{opts: opts, logger: logger}
	if opts.Rules != nil {
		p.engine = NewRuleEngine(opts.Rules)
	}
	return p
}

// Categorize runs the full pipeline for one transaction against history.
// A nil result means "leave uncategorized".
func (p *Pipeline) Categorize(tx Transaction, history []Transaction) *CategorySuggestion {
	if suggestion := ExactMatch(tx.Entity, history); suggestion != nil {
		p.logger.Debug("categorized by exact match",
			slog.String("entity", tx.Entity),
			slog.Int("confidence", suggestion.Confidence),
		)
		return suggestion
	}

	result := p.phase2(tx, history)

	if result == nil || p.opts.WantML {
		if ml := p.phase3(tx.Entity); ml != nil {
			if result == nil || ml.Confidence > result.Confidence {
				result = ml
			}
		}
	}

	if result != nil {
		p.logger.Debug("categorized",
			slog.String("entity", tx.Entity),
			slog.String("method", string(result.Method)),
			slog.Int("confidence", result.Confidence),
		)
	}
	return result
}

// CategorizeBatch categorizes many transactions against the same history.
func (p *Pipeline) CategorizeBatch(txs []Transaction, history []Transaction) []*CategorySuggestion {
	results := make([]*CategorySuggestion, len(txs))
	for i, tx := range txs {
		results[i] = p.Categorize(tx, history)
	}
	return results
}

func (p *Pipeline) phase2(tx Transaction, history []Transaction) *CategorySuggestion {
	var best *CategorySuggestion
	for _, method := range p.opts.Methods {
		suggestion := p.runMethod(method, tx, history)
		if suggestion == nil {
			continue
		}
		if p.opts.Policy == PolicyFirstMatch {
			return suggestion
		}
		if best == nil || suggestion.Confidence > best.Confidence {
			best = suggestion
		}
	}
	return best
}

func (p *Pipeline) runMethod(method Method, tx Transaction, history []Transaction) *CategorySuggestion {
	switch method {
	case MethodKeywordRule:
		if p.engine != nil {
			return p.engine.Match(tx.Entity)
		}
		return MatchKeywordRule(tx.Entity, nil)
	case MethodFuzzyMatch:
		amount := tx.Amount
		if amount.IsZero() {
			return FuzzyMatch(tx.Entity, history, nil, p.opts.FuzzyThreshold)
		}
		return FuzzyMatch(tx.Entity, history, &amount, p.opts.FuzzyThreshold)
	case MethodTFIDF:
		if p.opts.TFIDF != nil {
			return p.opts.TFIDF.Categorize(tx.Entity, p.opts.TFIDFThreshold)
		}
		return MatchTFIDF(tx.Entity, history, p.opts.TFIDFThreshold)
	case MethodHistoricalPattern:
		if p.opts.Learner == nil {
			return nil
		}
		return p.opts.Learner.Categorize(tx)
	default:
		return nil
	}
}

func (p *Pipeline) phase3(description string) *CategorySuggestion {
	if p.opts.Predictor == nil {
		return nil
	}
	return p.opts.Predictor.Predict(description)
}
