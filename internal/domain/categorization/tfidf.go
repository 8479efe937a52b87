package categorization

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

const (
	// tfidfFloor is the hard minimum cosine similarity for a TF-IDF match.
	tfidfFloor = 0.3
	// DefaultTFIDFThreshold applies when the caller passes a non-positive
	// threshold.
	DefaultTFIDFThreshold = 0.5
)

// tfidfDocument is one categorized history entry in vector space.
type tfidfDocument struct {
	tx     Transaction
	vector map[string]float64
	norm   float64
}

// TFIDFModel is a term-vector space built over categorized history. It is an
// explicit owned handle; a process-wide cached instance is available through
// TrainCachedModel/CachedModel/SetCachedModel for single-session callers.
type TFIDFModel struct {
	docs    []tfidfDocument
	docFreq map[string]int
	corpus  int
}

// TrainTFIDF builds a model from categorized history: normalized
// descriptions, stopwords removed, tokens longer than two characters.
func TrainTFIDF(history []Transaction) *TFIDFModel {
	m := &TFIDFModel{docFreq: make(map[string]int)}

	type rawDoc struct {
		tx     Transaction
		counts map[string]int
		total  int
	}

	var raws []rawDoc
	for _, tx := range categorizedHistory(history) {
		tokens := significantTokens(Normalize(tx.Entity))
		if len(tokens) == 0 {
			continue
		}
		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		for term := range counts {
			m.docFreq[term]++
		}
		raws = append(raws, rawDoc{tx: tx, counts: counts, total: len(tokens)})
	}

	m.corpus = len(raws)
	m.docs = make([]tfidfDocument, 0, len(raws))
	for _, raw := range raws {
		vector := make(map[string]float64, len(raw.counts))
		for term, count := range raw.counts {
			tf := float64(count) / float64(raw.total)
			vector[term] = tf * m.idf(term)
		}
		m.docs = append(m.docs, tfidfDocument{
			tx:     raw.tx,
			vector: vector,
			norm:   vectorNorm(vector),
		})
	}

	return m
}

// idf is ln(corpusSize/documentFrequency); terms outside the vocabulary
// weigh zero.
func (m *TFIDFModel) idf(term string) float64 {
	df := m.docFreq[term]
	if df == 0 || m.corpus == 0 {
		return 0
	}
	return math.Log(float64(m.corpus) / float64(df))
}

// CorpusSize returns the number of documents in the model.
func (m *TFIDFModel) CorpusSize() int {
	return m.corpus
}

// VocabularySize returns the number of unique terms in the model.
func (m *TFIDFModel) VocabularySize() int {
	return len(m.docFreq)
}

// queryVector vectorizes a raw description against the model vocabulary.
func (m *TFIDFModel) queryVector(description string) map[string]float64 {
	tokens := significantTokens(Normalize(description))
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	vector := make(map[string]float64, len(counts))
	for term, count := range counts {
		tf := float64(count) / float64(len(tokens))
		vector[term] = tf * m.idf(term)
	}
	return vector
}

// Categorize ranks history by cosine similarity to the description and
// suggests the nearest neighbor's category (Phase 2c). Rejected below
// max(0.3, threshold). Confidence carries a flat +20 boost over the raw
// similarity, capped at 100.
func (m *TFIDFModel) Categorize(description string, threshold float64) *CategorySuggestion {
	if m == nil || m.corpus == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultTFIDFThreshold
	}

	query := m.queryVector(description)
	queryNorm := vectorNorm(query)
	if queryNorm == 0 {
		return nil
	}

	var best *tfidfDocument
	bestSimilarity := 0.0
	for i := range m.docs {
		doc := &m.docs[i]
		similarity := cosineSimilarity(query, queryNorm, doc.vector, doc.norm)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = doc
		}
	}

	floor := math.Max(tfidfFloor, threshold)
	if best == nil || bestSimilarity < floor {
		return nil
	}

	confidence := int(math.Round(math.Min(100, bestSimilarity*100+20)))
	return &CategorySuggestion{
		Category:    best.tx.Category,
		Subcategory: best.tx.Subcategory,
		Confidence:  clampConfidence(confidence),
		Reason:      fmt.Sprintf("text similarity with %q (%.0f%%)", best.tx.Entity, bestSimilarity*100),
		Method:      MethodTFIDF,
	}
}

// FindSimilar returns up to limit history entries above the similarity
// floor, sorted descending.
func (m *TFIDFModel) FindSimilar(description string, limit int) []SimilarTransaction {
	if m == nil || m.corpus == 0 || limit <= 0 {
		return nil
	}

	query := m.queryVector(description)
	queryNorm := vectorNorm(query)
	if queryNorm == 0 {
		return nil
	}

	var results []SimilarTransaction
	for i := range m.docs {
		doc := &m.docs[i]
		similarity := cosineSimilarity(query, queryNorm, doc.vector, doc.norm)
		if similarity >= tfidfFloor {
			results = append(results, SimilarTransaction{Transaction: doc.tx, Similarity: similarity})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

var (
	cachedModelMu sync.RWMutex
	cachedModel   *TFIDFModel
)

// TrainCachedModel rebuilds the process-wide cached model from history and
// returns it. The cache is replaced wholesale under a lock.
func TrainCachedModel(history []Transaction) *TFIDFModel {
	m := TrainTFIDF(history)
	SetCachedModel(m)
	return m
}

// CachedModel returns the process-wide cached model, or nil if none was
// trained yet.
func CachedModel() *TFIDFModel {
	cachedModelMu.RLock()
	defer cachedModelMu.RUnlock()
	return cachedModel
}

// SetCachedModel replaces the process-wide cached model.
func SetCachedModel(m *TFIDFModel) {
	cachedModelMu.Lock()
	defer cachedModelMu.Unlock()
	cachedModel = m
}

// MatchTFIDF categorizes against the cached model, training it from the
// given history on first use (Phase 2c convenience entry point).
func MatchTFIDF(description string, history []Transaction, threshold float64) *CategorySuggestion {
	m := CachedModel()
	if m == nil {
		m = TrainCachedModel(history)
	}
	return m.Categorize(description, threshold)
}

func vectorNorm(v map[string]float64) float64 {
	sum := 0.0
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a map[string]float64, aNorm float64, b map[string]float64, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}
	dot := 0.0
	for term, w := range a {
		dot += w * b[term]
	}
	return dot / (aNorm * bNorm)
}
