// Package classifier implements the trainable sequence classifier (Phase 3):
// a vocabulary-bounded tokenizer feeding a small recurrent neural model that
// can be trained, persisted through an injected key-value store, and queried
// for category predictions.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/FACorreiaa/ledger-categorizer/internal/domain/categorization"
	"github.com/FACorreiaa/ledger-categorizer/pkg/kvstore"
)

// Fixed persistence keys; all classifier state lives under these.
const (
	keyWeights    = "classifier:weights"
	keyVocabulary = "classifier:vocabulary"
	keyEncoder    = "classifier:encoder"
	keyDecoder    = "classifier:decoder"
	keyMetrics    = "classifier:metrics"
)

// minPredictionConfidence suppresses low-certainty predictions.
const minPredictionConfidence = 30

// ErrInsufficientData is returned by Train when the categorized subset spans
// fewer than two distinct categories.
var ErrInsufficientData = fmt.Errorf("insufficient training data: need categorized transactions across at least 2 categories")

// Config holds the classifier hyperparameters.
type Config struct {
	VocabSize    int
	SeqLen       int
	EmbedDim     int
	HiddenDim    int
	Dense1Units  int
	Dense2Units  int
	LearningRate float64
	Seed         int64
}

// DefaultConfig returns the stock architecture sizes.
func DefaultConfig() Config {
	return Config{
		VocabSize:    1000,
		SeqLen:       20,
		EmbedDim:     16,
		HiddenDim:    32,
		Dense1Units:  32,
		Dense2Units:  16,
		LearningRate: 0.01,
		Seed:         42,
	}
}

// Metrics records the outcome of the last training run.
type Metrics struct {
	Accuracy          float64   `json:"accuracy"`
	Loss              float64   `json:"loss"`
	TrainSamples      int       `json:"train_samples"`
	ValidationSamples int       `json:"validation_samples"`
	TrainedAt         time.Time `json:"trained_at"`
}

// TrainOptions controls one training run. OnEpochEnd, when set, is invoked
// after every epoch with the training loss and accuracy; it must not block
// beyond trivial bookkeeping.
type TrainOptions struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	OnEpochEnd      func(epoch int, loss, accuracy float64)
}

// Classifier is an explicit owned handle over the model, its vocabulary and
// category codecs. Lifecycle: Init (idempotent) -> Train -> {Save, Reset};
// Load restores a previously persisted session.
type Classifier struct {
	cfg    Config
	store  kvstore.Store
	logger *slog.Logger

	mu      sync.RWMutex
	net     *network
	vocab   map[string]int
	encoder map[string]int
	decoder []string
	metrics *Metrics
}

// New creates a classifier persisting through the given store.
func New(store kvstore.Store, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cfg: cfg, store: store, logger: logger}
}

// Init builds the model if it does not exist yet. Safe to call repeatedly.
func (c *Classifier) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initLocked()
}

func (c *Classifier) initLocked() {
	if c.net != nil {
		return
	}
	c.net = newNetwork(networkConfig{
		VocabSize:    c.cfg.VocabSize,
		SeqLen:       c.cfg.SeqLen,
		EmbedDim:     c.cfg.EmbedDim,
		HiddenDim:    c.cfg.HiddenDim,
		Dense1Units:  c.cfg.Dense1Units,
		Dense2Units:  c.cfg.Dense2Units,
		LearningRate: c.cfg.LearningRate,
		DropoutRNN:   0.3,
		DropoutDense: 0.2,
	}, c.cfg.Seed)
}

// IsTrained reports whether the classifier holds a trained model.
func (c *Classifier) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.net != nil && len(c.decoder) > 0
}

// Metrics returns a copy of the last training metrics, or nil before any
// training.
func (c *Classifier) Metrics() *Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.metrics == nil {
		return nil
	}
	m := *c.metrics
	return &m
}

// Train fits the model on categorized history. It fails with
// ErrInsufficientData when fewer than two distinct categories are present.
// Training is CPU-bound and synchronous; cancellation is honored between
// epochs only.
func (c *Classifier) Train(ctx context.Context, txns []categorization.Transaction, opts TrainOptions) error {
	categorized := make([]categorization.Transaction, 0, len(txns))
	for _, tx := range txns {
		if tx.IsCategorized() {
			categorized = append(categorized, tx)
		}
	}

	distinct := make(map[string]bool)
	for _, tx := range categorized {
		distinct[tx.Category] = true
	}
	if len(distinct) < 2 {
		return fmt.Errorf("%w (got %d)", ErrInsufficientData, len(distinct))
	}

	if opts.Epochs <= 0 {
		opts.Epochs = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	if opts.ValidationSplit < 0 || opts.ValidationSplit >= 1 {
		opts.ValidationSplit = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.initLocked()

	c.vocab = buildVocabulary(categorized, c.cfg.VocabSize)
	c.encoder, c.decoder = buildCategoryCodec(distinct)

	sequences := make([][]int, len(categorized))
	targets := make([]float64, len(categorized))
	denom := float64(len(c.decoder) - 1)
	for i, tx := range categorized {
		sequences[i] = c.encodeSequence(tx.Entity)
		targets[i] = float64(c.encoder[tx.Category]) / denom
	}

	rng := rand.New(rand.NewSource(c.cfg.Seed))
	order := rng.Perm(len(sequences))
	valCount := int(math.Round(opts.ValidationSplit * float64(len(sequences))))
	trainIdx := order[:len(order)-valCount]
	valIdx := order[len(order)-valCount:]

	var loss, accuracy float64
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training aborted: %w", err)
		}

		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		epochLoss, correct := 0.0, 0
		for start := 0; start < len(trainIdx); start += opts.BatchSize {
			end := start + opts.BatchSize
			if end > len(trainIdx) {
				end = len(trainIdx)
			}
			for _, idx := range trainIdx[start:end] {
				cache := c.net.forward(sequences[idx], true)
				epochLoss += c.net.backward(cache, targets[idx])
				if math.Abs(cache.prob-targets[idx]) < 0.5 {
					correct++
				}
			}
		}

		loss = epochLoss / float64(len(trainIdx))
		accuracy = float64(correct) / float64(len(trainIdx))
		if opts.OnEpochEnd != nil {
			opts.OnEpochEnd(epoch, loss, accuracy)
		}
	}

	c.metrics = &Metrics{
		Accuracy:          accuracy,
		Loss:              loss,
		TrainSamples:      len(trainIdx),
		ValidationSamples: len(valIdx),
		TrainedAt:         time.Now().UTC(),
	}

	c.logger.Info("classifier trained",
		slog.Int("samples", len(trainIdx)),
		slog.Int("categories", len(c.decoder)),
		slog.Float64("loss", loss),
		slog.Float64("accuracy", accuracy),
	)
	return nil
}

// Predict returns a suggestion for a description, or nil when the model is
// untrained, the input is empty, or the prediction falls under the 30%
// confidence floor. Runtime failures degrade to nil rather than propagate:
// mid-pipeline the absence of an ML opinion is preferred over aborting.
func (c *Classifier) Predict(description string) (suggestion *categorization.CategorySuggestion) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classifier inference failed", slog.Any("panic", r))
			suggestion = nil
		}
	}()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.net == nil || len(c.decoder) == 0 || categorization.Normalize(description) == "" {
		return nil
	}

	cache := c.net.forward(c.encodeSequence(description), false)
	probabilities := []float64{cache.prob}

	best := 0
	for i, p := range probabilities {
		if p > probabilities[best] {
			best = i
		}
	}

	confidence := int(math.Round(probabilities[best] * 100))
	if confidence < minPredictionConfidence {
		return nil
	}
	if confidence > 100 {
		confidence = 100
	}

	return &categorization.CategorySuggestion{
		Category:   c.decoder[best],
		Confidence: confidence,
		Reason:     fmt.Sprintf("model prediction at %d%% probability", confidence),
		Method:     categorization.MethodMLPrediction,
	}
}

// Save persists weights, vocabulary, category codecs and metrics under the
// fixed keys. A failed save is surfaced with its cause.
func (c *Classifier) Save(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.net == nil || len(c.decoder) == 0 {
		return fmt.Errorf("cannot save: classifier is not trained")
	}

	parts := map[string]any{
		keyWeights:    c.net,
		keyVocabulary: c.vocab,
		keyEncoder:    c.encoder,
		keyDecoder:    c.decoder,
		keyMetrics:    c.metrics,
	}
	for key, part := range parts {
		payload, err := json.Marshal(part)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", key, err)
		}
		if err := c.store.Set(ctx, key, string(payload)); err != nil {
			return fmt.Errorf("failed to persist %s: %w", key, err)
		}
	}

	c.logger.Info("classifier saved", slog.Int("categories", len(c.decoder)))
	return nil
}

// Load restores persisted state. It reports success as a boolean: missing or
// corrupt state yields false and leaves the in-memory state untouched.
func (c *Classifier) Load(ctx context.Context) bool {
	payloads := make(map[string]string, 5)
	for _, key := range []string{keyWeights, keyVocabulary, keyEncoder, keyDecoder, keyMetrics} {
		value, found, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Error("classifier load failed", slog.String("key", key), slog.Any("error", err))
			return false
		}
		if !found {
			c.logger.Debug("no persisted classifier state", slog.String("key", key))
			return false
		}
		payloads[key] = value
	}

	// Decode everything into temporaries first so a corrupt payload cannot
	// leave the classifier half-restored.
	var (
		net     network
		vocab   map[string]int
		encoder map[string]int
		decoder []string
		metrics Metrics
	)
	if err := json.Unmarshal([]byte(payloads[keyWeights]), &net); err != nil {
		c.logger.Error("corrupt classifier weights", slog.Any("error", err))
		return false
	}
	if err := json.Unmarshal([]byte(payloads[keyVocabulary]), &vocab); err != nil {
		c.logger.Error("corrupt classifier vocabulary", slog.Any("error", err))
		return false
	}
	if err := json.Unmarshal([]byte(payloads[keyEncoder]), &encoder); err != nil {
		c.logger.Error("corrupt classifier encoder", slog.Any("error", err))
		return false
	}
	if err := json.Unmarshal([]byte(payloads[keyDecoder]), &decoder); err != nil {
		c.logger.Error("corrupt classifier decoder", slog.Any("error", err))
		return false
	}
	if err := json.Unmarshal([]byte(payloads[keyMetrics]), &metrics); err != nil {
		c.logger.Error("corrupt classifier metrics", slog.Any("error", err))
		return false
	}
	if len(decoder) == 0 || len(net.Embedding) == 0 {
		c.logger.Error("persisted classifier state is incomplete")
		return false
	}

	net.rng = rand.New(rand.NewSource(c.cfg.Seed))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.net = &net
	c.vocab = vocab
	c.encoder = encoder
	c.decoder = decoder
	c.metrics = &metrics

	c.logger.Info("classifier loaded", slog.Int("categories", len(decoder)))
	return true
}

// Reset releases all trained state. The classifier returns to the
// uninitialized lifecycle stage.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.net = nil
	c.vocab = nil
	c.encoder = nil
	c.decoder = nil
	c.metrics = nil
}

// encodeSequence tokenizes a description into a fixed-length zero-padded
// integer sequence; unknown tokens map to the padding index.
func (c *Classifier) encodeSequence(description string) []int {
	seq := make([]int, c.cfg.SeqLen)
	for i, tok := range tokens(description) {
		if i >= c.cfg.SeqLen {
			break
		}
		seq[i] = c.vocab[tok] // missing tokens stay 0
	}
	return seq
}

// buildVocabulary collects tokens from all categorized descriptions into an
// alphabetically-sorted, size-capped index starting at 1 (0 is padding).
func buildVocabulary(txns []categorization.Transaction, limit int) map[string]int {
	seen := make(map[string]bool)
	for _, tx := range txns {
		for _, tok := range tokens(tx.Entity) {
			seen[tok] = true
		}
	}

	sorted := make([]string, 0, len(seen))
	for tok := range seen {
		sorted = append(sorted, tok)
	}
	sort.Strings(sorted)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	vocab := make(map[string]int, len(sorted))
	for i, tok := range sorted {
		vocab[tok] = i + 1
	}
	return vocab
}

// buildCategoryCodec maps categories to indices (sorted for determinism)
// and back.
func buildCategoryCodec(distinct map[string]bool) (map[string]int, []string) {
	decoder := make([]string, 0, len(distinct))
	for category := range distinct {
		decoder = append(decoder, category)
	}
	sort.Strings(decoder)

	encoder := make(map[string]int, len(decoder))
	for i, category := range decoder {
		encoder[category] = i
	}
	return encoder, decoder
}

// tokens splits a description into normalized tokens.
func tokens(description string) []string {
	normalized := categorization.Normalize(description)
	if normalized == "" {
		return nil
	}
	var out []string
	start := -1
	for i, r := range normalized {
		if r == ' ' {
			if start >= 0 {
				out = append(out, normalized[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, normalized[start:])
	}
	return out
}
