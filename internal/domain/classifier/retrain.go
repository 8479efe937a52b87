package classifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/ledger-categorizer/internal/domain/categorization"
)

// HistorySource supplies the categorized history a retraining run learns
// from. Implementations typically read the user's transaction log.
type HistorySource func(ctx context.Context) ([]categorization.Transaction, error)

// Retrainer periodically refits the classifier on fresh history using
// robfig/cron and persists the result.
type Retrainer struct {
	classifier *Classifier
	source     HistorySource
	opts       TrainOptions
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewRetrainer creates a scheduler around a classifier and a history source.
func NewRetrainer(c *Classifier, source HistorySource, opts TrainOptions, logger *slog.Logger) *Retrainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrainer{
		classifier: c,
		source:     source,
		opts:       opts,
		cron: cron.New(cron.WithLogger(
			cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)))),
		logger: logger,
	}
}

// Start schedules retraining at the given 5-field cron spec and begins the
// scheduler.
func (r *Retrainer) Start(spec string) error {
	_, err := r.cron.AddFunc(spec, r.retrain)
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info("retrain scheduler started",
		slog.String("schedule", spec),
		slog.Int("jobs", len(r.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops the scheduler. The returned context is done when all
// running jobs have completed.
func (r *Retrainer) Stop() context.Context {
	r.logger.Info("retrain scheduler stopping")
	return r.cron.Stop()
}

// RunNow triggers a retraining run outside the schedule.
func (r *Retrainer) RunNow() {
	go r.retrain()
}

func (r *Retrainer) retrain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	r.logger.Info("starting scheduled retraining")

	history, err := r.source(ctx)
	if err != nil {
		r.logger.Error("failed to load history for retraining", slog.Any("error", err))
		return
	}

	if err := r.classifier.Train(ctx, history, r.opts); err != nil {
		r.logger.Warn("retraining skipped", slog.Any("error", err))
		return
	}

	if err := r.classifier.Save(ctx); err != nil {
		r.logger.Error("failed to persist retrained classifier", slog.Any("error", err))
		return
	}

	metrics := r.classifier.Metrics()
	r.logger.Info("scheduled retraining completed",
		slog.Int("samples", metrics.TrainSamples),
		slog.Float64("accuracy", metrics.Accuracy),
		slog.Float64("loss", metrics.Loss),
	)
}
