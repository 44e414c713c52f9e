package pipeline

import (
	"log/slog"

	"catalogscan/internal/logging"
	"catalogscan/internal/scan"
)

// Reporter receives progress callbacks. Calls happen on the run goroutine.
type Reporter interface {
	RunStarted(total, pending int)
	ItemStarted(index, total int, item scan.Item)
	ItemFinished(index, total int, outcome Outcome)
}

// logReporter writes progress through slog, sampling the progress line so
// large batches do not flood the log.
type logReporter struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// NewLogReporter returns the default reporter.
func NewLogReporter(logger *slog.Logger) Reporter {
	return &logReporter{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(10),
	}
}

func (r *logReporter) RunStarted(total, pending int) {
	r.sampler.Reset()
	r.logger.Info("run started",
		logging.Int("items", total),
		logging.Int("pending", pending),
		logging.Int("skipped", total-pending),
	)
}

func (r *logReporter) ItemStarted(index, total int, item scan.Item) {
	r.logger.Debug("processing item",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("index", index+1),
		logging.Int("total", total),
	)
}

func (r *logReporter) ItemFinished(index, total int, outcome Outcome) {
	if r.sampler.ShouldLog(index+1, total) {
		r.logger.Info("progress",
			logging.Int("done", index+1),
			logging.Int("total", total),
			logging.String("last_item", outcome.Item.ID),
			logging.String(logging.FieldState, string(outcome.State)),
		)
	}
}

type nopReporter struct{}

func (nopReporter) RunStarted(int, int) {}

func (nopReporter) ItemStarted(int, int, scan.Item) {}

func (nopReporter) ItemFinished(int, int, Outcome) {}
