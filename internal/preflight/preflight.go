package preflight

import (
	"context"

	"catalogscan/internal/config"
	"catalogscan/internal/inference"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The endpoint check is skipped when gateway is nil or cannot be pinged.
func RunAll(ctx context.Context, cfg *config.Config, gateway inference.Gateway) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckSourceDirectory(cfg.Paths.SourceDir))
	results = append(results, CheckOutputLocation("Store", cfg.Paths.StorePath))
	results = append(results, CheckOutputLocation("Export", cfg.Paths.ExportPath))
	results = append(results, CheckOutputLocation("Report", cfg.Paths.ReportPath))
	if cfg.Sinks.SQLitePath != "" {
		results = append(results, CheckOutputLocation("SQLite mirror", cfg.Sinks.SQLitePath))
	}
	if cfg.Vocabulary.Path != "" {
		results = append(results, CheckVocabulary(cfg.Vocabulary.Path))
	}
	if pinger, ok := gateway.(inference.Pinger); ok {
		results = append(results, CheckGateway(ctx, gateway.Name(), pinger))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
