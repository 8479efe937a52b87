package categorization

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// TransactionDocument is the searchable projection of a categorized history
// entry.
type TransactionDocument struct {
	ID          string  `json:"id"`
	Entity      string  `json:"entity"`
	Normalized  string  `json:"normalized"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Boost       float64 `json:"boost"` // manually-edited entries rank higher
}

// TransactionHit is a search result with its relevance score.
type TransactionHit struct {
	Document TransactionDocument
	Score    float64
}

// SearchIndex is a bleve full-text index over categorized history. It feeds
// similar-transaction listings for callers and is not part of the confidence
// pipeline.
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewSearchIndex creates an in-memory index when path is empty, otherwise
// creates or opens a persistent one.
func NewSearchIndex(path string) (*SearchIndex, error) {
	indexMapping := buildIndexMapping()

	var (
		index bleve.Index
		err   error
	)
	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	numericFieldMapping := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("entity", textFieldMapping)
	docMapping.AddFieldMappingsAt("normalized", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("subcategory", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("boost", numericFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexHistory indexes every categorized entry in one batch. Uncategorized
// entries are skipped.
func (si *SearchIndex) IndexHistory(history []Transaction) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	batch := si.index.NewBatch()
	for _, tx := range categorizedHistory(history) {
		boost := 1.0
		if tx.IsManuallyEdited {
			boost = 2.0
		}
		doc := TransactionDocument{
			ID:          tx.ID.String(),
			Entity:      tx.Entity,
			Normalized:  Normalize(tx.Entity),
			Category:    tx.Category,
			Subcategory: tx.Subcategory,
			Boost:       boost,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index transaction %s: %w", doc.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search performs a match query with one edit of typo tolerance.
func (si *SearchIndex) Search(query string, limit int) ([]TransactionHit, error) {
	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)
	return si.run(bleve.NewSearchRequest(matchQuery), limit)
}

// SearchFuzzy performs a fuzzy search with a configurable edit distance
// (clamped to bleve's 0..2 range).
func (si *SearchIndex) SearchFuzzy(query string, fuzziness, limit int) ([]TransactionHit, error) {
	if fuzziness < 0 {
		fuzziness = 0
	}
	if fuzziness > 2 {
		fuzziness = 2
	}
	fuzzyQuery := bleve.NewFuzzyQuery(query)
	fuzzyQuery.SetFuzziness(fuzziness)
	return si.run(bleve.NewSearchRequest(fuzzyQuery), limit)
}

// SearchPrefix performs an autocomplete-style prefix search.
func (si *SearchIndex) SearchPrefix(prefix string, limit int) ([]TransactionHit, error) {
	return si.run(bleve.NewSearchRequest(bleve.NewPrefixQuery(prefix)), limit)
}

// SearchByCategory lists indexed transactions for an exact category.
func (si *SearchIndex) SearchByCategory(category string, limit int) ([]TransactionHit, error) {
	termQuery := bleve.NewTermQuery(category)
	termQuery.SetField("category")
	return si.run(bleve.NewSearchRequest(termQuery), limit)
}

func (si *SearchIndex) run(req *bleve.SearchRequest, limit int) ([]TransactionHit, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	req.Size = limit
	req.Fields = []string{"*"}

	searchResults, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]TransactionHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		doc := TransactionDocument{ID: hit.ID}
		if v, ok := hit.Fields["entity"].(string); ok {
			doc.Entity = v
		}
		if v, ok := hit.Fields["normalized"].(string); ok {
			doc.Normalized = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			doc.Category = v
		}
		if v, ok := hit.Fields["subcategory"].(string); ok {
			doc.Subcategory = v
		}
		if v, ok := hit.Fields["boost"].(float64); ok {
			doc.Boost = v
		}
		hits = append(hits, TransactionHit{Document: doc, Score: hit.Score * doc.Boost})
	}
	return hits, nil
}

// DeleteDocument removes one indexed transaction.
func (si *SearchIndex) DeleteDocument(id string) error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Delete(id)
}

// DocumentCount returns the number of indexed transactions.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.index.DocCount()
}

// Close releases the index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.index != nil {
		return si.index.Close()
	}
	return nil
}
