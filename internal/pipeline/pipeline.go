package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"catalogscan/internal/catalog"
	"catalogscan/internal/inference"
	"catalogscan/internal/logging"
	"catalogscan/internal/normalize"
	"catalogscan/internal/runctx"
	"catalogscan/internal/scan"
	"catalogscan/internal/schema"
	"catalogscan/internal/sink"
)

// Enumerator lists the work items of a run.
type Enumerator interface {
	Scan() (scan.Result, error)
}

// Committer persists the full record set.
type Committer interface {
	Commit(ctx context.Context, set *catalog.RecordSet) error
}

// Deps are the collaborators of a run.
type Deps struct {
	Scanner    Enumerator
	Gateway    inference.Gateway
	Normalizer *normalize.Normalizer
	Validator  *schema.Validator
	Writer     Committer
	Records    *catalog.RecordSet
	Logger     *slog.Logger
	Reporter   Reporter
}

// Pipeline is the orchestrator. It owns Records for the duration of Run.
type Pipeline struct {
	cfg        Config
	scanner    Enumerator
	gateway    inference.Gateway
	normalizer *normalize.Normalizer
	validator  *schema.Validator
	writer     Committer
	records    *catalog.RecordSet
	logger     *slog.Logger
	reporter   Reporter
}

// New validates deps and builds a pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Scanner == nil:
		return nil, errors.New("pipeline: scanner is required")
	case deps.Gateway == nil:
		return nil, errors.New("pipeline: gateway is required")
	case deps.Validator == nil:
		return nil, errors.New("pipeline: validator is required")
	case deps.Writer == nil:
		return nil, errors.New("pipeline: writer is required")
	case deps.Records == nil:
		return nil, errors.New("pipeline: record set is required")
	}
	p := &Pipeline{
		cfg:        cfg.withDefaults(),
		scanner:    deps.Scanner,
		gateway:    deps.Gateway,
		normalizer: deps.Normalizer,
		validator:  deps.Validator,
		writer:     deps.Writer,
		records:    deps.Records,
		logger:     logging.NewComponentLogger(deps.Logger, "pipeline"),
		reporter:   deps.Reporter,
	}
	if p.normalizer == nil {
		p.normalizer = normalize.Default()
	}
	if p.reporter == nil {
		p.reporter = nopReporter{}
	}
	return p, nil
}

// Run performs one scan-and-process cycle. Item failures are collected in
// the summary; a non-nil error means the run stopped early because the
// durable store could not be written or the source could not be scanned.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.cfg.Now()
	runID, ok := runctx.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = runctx.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, p.logger)
	summary := Summary{RunID: runID}
	finish := func() Summary {
		summary.Records = p.records.Len()
		summary.Elapsed = p.cfg.Now().Sub(started)
		return summary
	}

	result, err := p.scanner.Scan()
	if err != nil {
		return finish(), fmt.Errorf("scan source: %w", err)
	}
	summary.Total = len(result.Items)
	if result.Created {
		summary.SourceCreated = true
		logger.Info("source directory created; add images and run again")
		return finish(), nil
	}
	if len(result.Items) == 0 {
		logger.Info("no images to process")
		return finish(), nil
	}

	var pending []scan.Item
	for _, item := range result.Items {
		if p.records.IsProcessed(item.ID) {
			summary.Skipped++
			logger.Debug("item already processed",
				logging.String(logging.FieldItemID, item.ID),
				logging.String(logging.FieldState, string(StateSkipped)),
			)
			continue
		}
		pending = append(pending, item)
	}
	if p.cfg.Limit > 0 && len(pending) > p.cfg.Limit {
		summary.Deferred = len(pending) - p.cfg.Limit
		pending = pending[:p.cfg.Limit]
	}
	p.reporter.RunStarted(summary.Total, len(pending))
	if len(pending) == 0 {
		logger.Info("nothing pending", logging.Int("skipped", summary.Skipped))
		return finish(), nil
	}

	for i, item := range pending {
		if ctx.Err() != nil {
			summary.Interrupted = true
			logger.Info("run interrupted; remaining items stay pending",
				logging.Int("remaining", len(pending)-i),
			)
			return finish(), nil
		}
		p.reporter.ItemStarted(i, len(pending), item)
		outcome, fatal := p.processItem(ctx, item)
		p.reporter.ItemFinished(i, len(pending), outcome)

		switch outcome.State {
		case StateDone:
			summary.Done++
			switch outcome.Status {
			case catalog.StatusMalformed:
				summary.Placeholders++
			case catalog.StatusReview:
				summary.Review++
			}
		case StateFailed:
			summary.Failed = append(summary.Failed, Failure{Item: item.ID, State: failedFrom(outcome.History), Err: outcome.Err})
		default:
			// Inference cancelled by the caller: the item was not attempted.
			summary.Interrupted = true
			return finish(), nil
		}
		if fatal != nil {
			return finish(), fatal
		}
	}
	return finish(), nil
}

// processItem runs one item through the state machine. The second return
// value is non-nil only when the run must stop.
func (p *Pipeline) processItem(ctx context.Context, item scan.Item) (Outcome, error) {
	t := newTracker()
	outcome := Outcome{Item: item}
	ctx = runctx.WithItemID(ctx, item.ID)
	start := p.cfg.Now()
	done := func(state State, err error) Outcome {
		if state != t.current() {
			t.advance(state)
		}
		outcome.State = state
		outcome.Err = err
		outcome.History = t.history
		outcome.Duration = p.cfg.Now().Sub(start)
		return outcome
	}
	logger := func(state State) *slog.Logger {
		return logging.WithContext(runctx.WithState(ctx, string(state)), p.logger)
	}

	t.advance(StateInferring)
	raw, attempts, err := p.infer(ctx, item)
	outcome.Attempts = attempts
	if err != nil {
		if ctx.Err() != nil {
			// Leave the item PENDING; the caller ends the run.
			outcome.State = StatePending
			outcome.Err = err
			outcome.History = t.history
			return outcome, nil
		}
		logging.WarnWithContext(logger(StateInferring), "inference failed; item stays pending", "inference_failed",
			logging.Error(err),
			logging.Int("attempts", attempts),
			logging.String(logging.FieldErrorHint, "check that the model endpoint is reachable and the model is available"),
			logging.String(logging.FieldImpact, "item will be retried on the next run"),
		)
		return done(StateFailed, err), nil
	}

	t.advance(StateNormalizing)
	text := p.normalizer.Normalize(raw)

	t.advance(StateValidating)
	rec, err := p.classify(logger(StateValidating), item, raw, text)
	if err != nil {
		return done(StateFailed, err), nil
	}
	rec.Origin = item.ID
	rec.Model = p.gateway.Name()
	rec.DurationSeconds = roundSeconds(p.cfg.Now().Sub(start))
	outcome.Status = rec.Status

	t.advance(StateCommitting)
	if err := p.records.Append(rec); err != nil {
		return done(StateFailed, fmt.Errorf("append record: %w", err)), nil
	}
	// Commit even if the caller cancels mid-write: a half-finished commit
	// would leave sinks disagreeing.
	if err := p.writer.Commit(context.WithoutCancel(ctx), p.records); err != nil {
		commitLogger := logger(StateCommitting)
		if sink.IsDurable(err) {
			logging.WarnWithContext(commitLogger, "secondary sink write failed", "sink_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions and free space for the output files"),
				logging.String(logging.FieldImpact, "record is stored; derived outputs are refreshed on the next commit"),
			)
			return done(StateFailed, err), nil
		}
		p.records.Pop()
		logging.ErrorWithContext(commitLogger, "durable store write failed; stopping run", "store_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions and free space for the store file"),
		)
		return done(StateFailed, err), fmt.Errorf("commit %s: %w", item.ID, err)
	}

	logger(StateDone).Info("item committed",
		logging.String("status", string(rec.Status)),
		logging.String("title", rec.Title),
		logging.Float64("duration_seconds", rec.DurationSeconds),
	)
	return done(StateDone, nil), nil
}

// classify turns normalized text into the record to commit. Malformed text
// becomes a placeholder; vocabulary violations follow the enum policy.
func (p *Pipeline) classify(logger *slog.Logger, item scan.Item, raw, text string) (catalog.Record, error) {
	res, err := p.validator.Validate(text)
	if err == nil {
		if len(res.Repairs) > 0 {
			logger.Debug("record repaired", logging.Any("repairs", res.Repairs))
		}
		return res.Record, nil
	}

	var serr *schema.SchemaError
	if !errors.As(err, &serr) {
		return catalog.Record{}, err
	}
	switch serr.Kind {
	case schema.KindEnumViolation:
		if p.cfg.EnumPolicy == EnumPolicyReject {
			logging.WarnWithContext(logger, "classification outside vocabulary; item rejected", "enum_violation_rejected",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "extend the vocabulary file or switch enum_policy to review"),
				logging.String(logging.FieldImpact, "item will be retried on the next run"),
			)
			return catalog.Record{}, err
		}
		logging.WarnWithContext(logger, "classification outside vocabulary; committing for review", "enum_violation_review",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the record in the store or forget it to reprocess"),
			logging.String(logging.FieldImpact, "record committed with status review"),
		)
		return schema.Review(res.Record, raw, err), nil
	default:
		logging.WarnWithContext(logger, "model output is not a catalog object; committing placeholder", "malformed_response",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect raw_response in the store, then fix the record or forget it"),
			logging.String(logging.FieldImpact, "placeholder committed; item will not be retried automatically"),
		)
		return schema.Placeholder(item.ID, raw, err), nil
	}
}

// infer calls the gateway, retrying retryable errors with exponential
// backoff up to the configured number of attempts.
func (p *Pipeline) infer(ctx context.Context, item scan.Item) (string, int, error) {
	for attempt := 1; ; attempt++ {
		raw, err := p.gateway.Infer(ctx, item)
		if err == nil {
			return raw, attempt, nil
		}
		var ierr *inference.InferenceError
		if !errors.As(err, &ierr) {
			err = &inference.InferenceError{Item: item.ID, Provider: p.gateway.Name(), Op: "infer", Err: err}
		}
		if attempt >= p.cfg.InferenceAttempts || !inference.IsRetryable(err) || ctx.Err() != nil {
			return "", attempt, err
		}
		delay := backoffDelay(p.cfg.RetryBackoff, p.cfg.RetryMaxBackoff, attempt)
		logging.WithContext(ctx, p.logger).Info("retrying inference",
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", p.cfg.InferenceAttempts),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if sleepErr := p.cfg.Sleep(ctx, delay); sleepErr != nil {
			return "", attempt, err
		}
	}
}

func failedFrom(history []State) State {
	if len(history) < 2 {
		return StatePending
	}
	return history[len(history)-2]
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
