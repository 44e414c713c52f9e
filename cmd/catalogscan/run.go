package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"catalogscan/internal/config"
	"catalogscan/internal/logging"
	"catalogscan/internal/notifications"
	"catalogscan/internal/pipeline"
	"catalogscan/internal/preflight"
	"catalogscan/internal/scan"
	"catalogscan/internal/schema"
)

type runOptions struct {
	limit      int
	skipChecks bool
}

func runCatalog(cmd *cobra.Command, cfg *config.Config, opts runOptions) error {
	ctx := cmd.Context()
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	vocab, err := loadVocabulary(cfg)
	if err != nil {
		return err
	}
	gateway, err := newGateway(cfg, vocab)
	if err != nil {
		return err
	}
	normalizer, err := newNormalizer(cfg)
	if err != nil {
		return err
	}

	if !opts.skipChecks {
		if failed := preflight.Failed(preflight.RunAll(ctx, cfg, gateway)); len(failed) > 0 {
			names := make([]string, 0, len(failed))
			for _, r := range failed {
				logging.ErrorWithContext(logger, "readiness check failed", "preflight_failed",
					logging.String("check", r.Name),
					logging.String("detail", r.Detail),
					logging.String(logging.FieldErrorHint, "run 'catalogscan check' for details or pass --skip-checks"),
				)
				names = append(names, r.Name)
			}
			return fmt.Errorf("readiness checks failed: %s", strings.Join(names, ", "))
		}
	}

	app, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	pcfg := pipeline.ConfigFrom(cfg)
	if opts.limit > 0 {
		pcfg.Limit = opts.limit
	}
	p, err := pipeline.New(pcfg, pipeline.Deps{
		Scanner:    &scan.Scanner{Root: cfg.Paths.SourceDir, Extensions: cfg.Pipeline.Extensions, Logger: logger},
		Gateway:    gateway,
		Normalizer: normalizer,
		Validator:  schema.New(vocab),
		Writer:     app.writer,
		Records:    app.records,
		Logger:     logger,
		Reporter:   pipeline.NewLogReporter(logger),
	})
	if err != nil {
		return err
	}

	logger.Info("catalog run starting",
		logging.String("source_dir", cfg.Paths.SourceDir),
		logging.String("model", gateway.Name()),
		logging.String("sinks", strings.Join(app.writer.Sinks(), ",")),
		logging.Int("stored", app.records.Len()),
	)
	summary, runErr := p.Run(ctx)
	reportSummary(cmd.OutOrStdout(), logger, summary)
	notifyRun(ctx, notifications.NewService(cfg), logger, summary, runErr)
	if runErr != nil {
		return fmt.Errorf("run stopped: %w", runErr)
	}
	return nil
}

// notifyRun pushes the outcome when the run did any work or stopped early.
func notifyRun(ctx context.Context, svc notifications.Service, logger *slog.Logger, summary pipeline.Summary, runErr error) {
	ctx = context.WithoutCancel(ctx)
	var err error
	switch {
	case runErr != nil:
		err = svc.NotifyRunStopped(ctx, runErr)
	case summary.Done > 0 || len(summary.Failed) > 0:
		err = svc.NotifyRunCompleted(ctx, notifications.RunReport{
			Committed:      summary.Done,
			NeedsAttention: summary.Placeholders + summary.Review,
			Failed:         len(summary.Failed),
			Deferred:       summary.Deferred,
			Records:        summary.Records,
			Elapsed:        summary.Elapsed,
		})
	}
	if err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "catalog output is unaffected"),
		)
	}
}
