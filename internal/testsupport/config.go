package testsupport

import (
	"path/filepath"
	"testing"

	"catalogscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose paths all live in a fresh temp directory.
// The source directory is not created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "imagenes")
	cfgVal.Paths.StorePath = filepath.Join(base, "out", "productos.json")
	cfgVal.Paths.ExportPath = filepath.Join(base, "out", "catalogo.xlsx")
	cfgVal.Paths.ReportPath = filepath.Join(base, "out", "catalogo.html")
	cfgVal.Paths.LogDir = ""
	cfgVal.Inference.Model = "test-model"
	cfgVal.Report.ImageBase = "../imagenes"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCSVExport switches the export to CSV.
func WithCSVExport() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ExportPath = filepath.Join(b.baseDir, "out", "catalogo.csv")
		b.cfg.Export.Format = config.ExportCSV
	}
}

// WithSQLiteMirror enables the SQLite sink inside the temp directory.
func WithSQLiteMirror() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sinks.SQLitePath = filepath.Join(b.baseDir, "out", "catalogo.db")
	}
}

// WithOllama points the ollama provider at baseURL.
func WithOllama(baseURL, model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inference.Provider = config.ProviderOllama
		b.cfg.Inference.BaseURL = baseURL
		b.cfg.Inference.Model = model
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}
