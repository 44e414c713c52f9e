package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"catalogscan/internal/catalog"
	"catalogscan/internal/catalogdb"
	"catalogscan/internal/config"
	"catalogscan/internal/export"
	"catalogscan/internal/inference"
	"catalogscan/internal/normalize"
	"catalogscan/internal/report"
	"catalogscan/internal/sink"
	"catalogscan/internal/store"
)

// catalogApp holds the locked store, the loaded record set, and the writer
// that keeps every sink in step with it.
type catalogApp struct {
	lock    *store.Lock
	store   *store.Store
	records *catalog.RecordSet
	writer  *sink.Writer
	mirror  *catalogdb.Store
}

// openApp locks the store and loads it. Callers must Close the result.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalogApp, error) {
	lock, err := store.AcquireLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return nil, fmt.Errorf("%w; wait for the other run to finish", err)
		}
		return nil, err
	}
	app := &catalogApp{lock: lock}

	app.store = store.New(cfg.Paths.StorePath, logger)
	app.records, err = app.store.Load()
	if err != nil {
		app.Close()
		return nil, err
	}

	exp, err := export.New(cfg.Paths.ExportPath, cfg.Export.Format)
	if err != nil {
		app.Close()
		return nil, err
	}
	secondary := []sink.Sink{
		exp,
		report.New(cfg.Paths.ReportPath, cfg.Report.Title, cfg.Report.ImageBase),
	}
	if cfg.Sinks.SQLitePath != "" {
		app.mirror, err = catalogdb.Open(ctx, cfg.Sinks.SQLitePath)
		if err != nil {
			app.Close()
			return nil, err
		}
		secondary = append(secondary, app.mirror)
	}
	app.writer = sink.NewWriter(app.store, secondary...)
	return app, nil
}

func (a *catalogApp) Close() error {
	var errs []error
	if a.mirror != nil {
		errs = append(errs, a.mirror.Close())
	}
	errs = append(errs, a.lock.Release())
	return errors.Join(errs...)
}

func loadVocabulary(cfg *config.Config) (*catalog.Vocabulary, error) {
	if cfg.Vocabulary.Path == "" {
		return catalog.DefaultVocabulary(), nil
	}
	return catalog.LoadVocabulary(cfg.Vocabulary.Path)
}

func newGateway(cfg *config.Config, vocab *catalog.Vocabulary) (inference.Gateway, error) {
	prompt, err := inference.LoadPrompt(cfg.Inference.PromptFile, vocab)
	if err != nil {
		return nil, err
	}
	return inference.New(inference.ConfigFrom(cfg.Inference, prompt))
}

func newNormalizer(cfg *config.Config) (*normalize.Normalizer, error) {
	if len(cfg.Normalizer.Replacements) == 0 {
		return normalize.Default(), nil
	}
	table := make([]normalize.Replacement, 0, len(cfg.Normalizer.Replacements))
	for _, r := range cfg.Normalizer.Replacements {
		table = append(table, normalize.Replacement{From: r.From, To: r.To})
	}
	n, err := normalize.New(table)
	if err != nil {
		return nil, fmt.Errorf("normalizer.replacements: %w", err)
	}
	return n, nil
}
