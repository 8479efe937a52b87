// Command categorize runs the categorization pipeline over a CSV of
// transactions and prints suggestions. With no input file it demonstrates
// the pipeline on generated fixtures.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-categorizer/internal/domain/categorization"
	"github.com/FACorreiaa/ledger-categorizer/internal/domain/classifier"
	"github.com/FACorreiaa/ledger-categorizer/pkg/config"
	"github.com/FACorreiaa/ledger-categorizer/pkg/kvstore"
	"github.com/FACorreiaa/ledger-categorizer/pkg/money"
)

func main() {
	historyPath := flag.String("history", "", "CSV file with categorized history")
	inputPath := flag.String("input", "", "CSV file with transactions to categorize")
	train := flag.Bool("train", false, "train the ML classifier on the history before categorizing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger, *historyPath, *inputPath, *train); err != nil {
		logger.Error("categorize failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, historyPath, inputPath string, train bool) error {
	history, err := loadTransactions(historyPath)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	input, err := loadTransactions(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}

	// Fall back to generated fixtures so the demo works out of the box.
	if len(history) == 0 && len(input) == 0 {
		gen := categorization.NewTestDataGenerator(1)
		history = gen.CategorizedHistory(40)
		for i := 0; i < 10; i++ {
			input = append(input, gen.Transaction())
		}
		logger.Info("no CSV input given, using generated fixtures",
			slog.Int("history", len(history)),
			slog.Int("input", len(input)),
		)
	}

	learner := categorization.NewPatternLearner()
	learner.Learn(history)

	store, err := kvstore.OpenBolt(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	predictor, err := buildClassifier(ctx, cfg, logger, store, history, train)
	if err != nil {
		return err
	}

	pipeline := categorization.NewPipeline(categorization.PipelineOptions{
		Learner:        learner,
		Predictor:      predictor,
		FuzzyThreshold: cfg.Pipeline.FuzzyThreshold,
		TFIDFThreshold: cfg.Pipeline.TFIDFThreshold,
		Policy:         policyFromConfig(cfg.Pipeline),
		WantML:         cfg.Pipeline.AlwaysRunML,
		Logger:         logger,
	})

	categorized := 0
	for _, tx := range input {
		suggestion := pipeline.Categorize(tx, history)
		amount := money.Format(tx.Amount, tx.Currency)
		if suggestion == nil {
			fmt.Printf("%-40s %12s  (uncategorized)\n", tx.Entity, amount)
			continue
		}
		categorized++
		fmt.Printf("%-40s %12s  %s / %s  %d%% via %s\n",
			tx.Entity, amount,
			suggestion.Category, orDash(suggestion.Subcategory),
			suggestion.Confidence, suggestion.Method,
		)
	}

	logger.Info("done",
		slog.Int("total", len(input)),
		slog.Int("categorized", categorized),
	)
	return nil
}

// buildClassifier wires the ML phase: a restored session when one exists,
// plus an optional fresh training run.
func buildClassifier(ctx context.Context, cfg *config.Config, logger *slog.Logger, store kvstore.Store, history []categorization.Transaction, train bool) (categorization.MLPredictor, error) {
	clsCfg := classifier.DefaultConfig()
	clsCfg.VocabSize = cfg.Classifier.VocabSize
	clsCfg.SeqLen = cfg.Classifier.SeqLen
	clsCfg.EmbedDim = cfg.Classifier.EmbedDim
	clsCfg.HiddenDim = cfg.Classifier.HiddenDim
	clsCfg.Dense1Units = cfg.Classifier.Dense1Units
	clsCfg.Dense2Units = cfg.Classifier.Dense2Units
	clsCfg.LearningRate = cfg.Classifier.LearningRate

	cls := classifier.New(store, clsCfg, logger)
	if cls.Load(ctx) {
		logger.Info("restored trained classifier")
	}

	if train {
		opts := classifier.TrainOptions{
			Epochs:    cfg.Classifier.Epochs,
			BatchSize: cfg.Classifier.BatchSize,
		}
		if err := cls.Train(ctx, history, opts); err != nil {
			logger.Warn("classifier training skipped", slog.Any("error", err))
			return cls, nil
		}
		if err := cls.Save(ctx); err != nil {
			return nil, err
		}
	}
	return cls, nil
}

// csvDate parses YYYY-MM-DD cells; empty cells stay zero.
type csvDate struct {
	time.Time
}

func (d *csvDate) UnmarshalCSV(cell string) error {
	if cell == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", cell)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d csvDate) MarshalCSV() (string, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format("2006-01-02"), nil
}

// csvTransaction is the CSV row shape.
type csvTransaction struct {
	Date        csvDate `csv:"date"`
	Entity      string  `csv:"description"`
	Amount      string  `csv:"amount"`
	Currency    string  `csv:"currency"`
	Category    string  `csv:"category"`
	Subcategory string  `csv:"subcategory"`
}

func loadTransactions(path string) ([]categorization.Transaction, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []csvTransaction
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make([]categorization.Transaction, 0, len(rows))
	for _, row := range rows {
		amount := decimal.Zero
		if row.Amount != "" {
			var err error
			amount, err = decimal.NewFromString(row.Amount)
			if err != nil {
				return nil, fmt.Errorf("bad amount %q in %s: %w", row.Amount, path, err)
			}
		}
		currency := row.Currency
		if currency == "" {
			currency = money.USD
		}
		tx := categorization.Transaction{
			ID:          uuid.New(),
			Date:        row.Date.Time,
			Entity:      row.Entity,
			Amount:      amount,
			Currency:    currency,
			Category:    row.Category,
			Subcategory: row.Subcategory,
		}
		if tx.IsCategorized() {
			tx.Confidence = 100
			tx.IsManuallyEdited = true
		}
		out = append(out, tx)
	}
	return out, nil
}

func policyFromConfig(p config.PipelineConfig) categorization.Policy {
	if p.BestConfidence {
		return categorization.PolicyBestConfidence
	}
	return categorization.PolicyFirstMatch
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
