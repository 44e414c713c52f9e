package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInference(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeExport()
	c.normalizeReport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
		def   string
	}{
		{"paths.source_dir", &c.Paths.SourceDir, defaultSourceDir},
		{"paths.store_path", &c.Paths.StorePath, defaultStorePath},
		{"paths.export_path", &c.Paths.ExportPath, defaultExportPath},
		{"paths.report_path", &c.Paths.ReportPath, defaultReportPath},
		{"paths.log_dir", &c.Paths.LogDir, ""},
		{"vocabulary.path", &c.Vocabulary.Path, ""},
		{"inference.prompt_file", &c.Inference.PromptFile, ""},
		{"sinks.sqlite_path", &c.Sinks.SQLitePath, ""},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.def
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeInference() error {
	inf := &c.Inference
	inf.Provider = strings.ToLower(strings.TrimSpace(inf.Provider))
	if inf.Provider == "" {
		inf.Provider = defaultProvider
	}
	inf.BaseURL = strings.TrimSpace(inf.BaseURL)
	inf.Model = strings.TrimSpace(inf.Model)
	inf.APIKey = strings.TrimSpace(inf.APIKey)

	switch inf.Provider {
	case ProviderOllama:
		if inf.BaseURL == "" {
			if value, ok := os.LookupEnv("OLLAMA_HOST"); ok && strings.TrimSpace(value) != "" {
				inf.BaseURL = normalizeOllamaHost(value)
			} else {
				inf.BaseURL = DefaultOllamaBaseURL
			}
		}
		if inf.Model == "" {
			inf.Model = defaultOllamaModel
		}
	case ProviderOpenRouter:
		if inf.BaseURL == "" {
			inf.BaseURL = DefaultOpenRouterBaseURL
		}
		if inf.Model == "" {
			inf.Model = defaultOpenRouterModel
		}
		inf.APIKey = firstEnv(inf.APIKey, "CATALOGSCAN_API_KEY", "OPENROUTER_API_KEY")
	case ProviderGemini:
		if inf.Model == "" {
			inf.Model = defaultGeminiModel
		}
		inf.APIKey = firstEnv(inf.APIKey, "CATALOGSCAN_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	inf.BaseURL = strings.TrimRight(inf.BaseURL, "/")

	if inf.TimeoutSeconds <= 0 {
		inf.TimeoutSeconds = defaultTimeoutSeconds
	}
	if inf.Options.ContextWindow < 0 {
		inf.Options.ContextWindow = 0
	}
	if inf.Options.MaxOutputTokens < 0 {
		inf.Options.MaxOutputTokens = 0
	}
	return nil
}

// normalizeOllamaHost accepts the OLLAMA_HOST forms the ollama CLI accepts
// ("host:port" without scheme).
func normalizeOllamaHost(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	return value
}

// firstEnv returns current when set, otherwise the first non-empty variable.
func firstEnv(current string, names ...string) string {
	if current != "" {
		return current
	}
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizePipeline() {
	p := &c.Pipeline
	exts := make([]string, 0, len(p.Extensions))
	seen := make(map[string]struct{}, len(p.Extensions))
	for _, ext := range p.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	p.Extensions = exts

	if p.InferenceAttempts <= 0 {
		p.InferenceAttempts = defaultInferenceAttempts
	}
	if p.RetryBackoffSeconds < 0 {
		p.RetryBackoffSeconds = 0
	}
	p.EnumPolicy = strings.ToLower(strings.TrimSpace(p.EnumPolicy))
	if p.EnumPolicy == "" {
		p.EnumPolicy = EnumPolicyReview
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
}

func (c *Config) normalizeExport() {
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	if c.Export.Format != "" {
		return
	}
	if strings.EqualFold(filepath.Ext(c.Paths.ExportPath), ".csv") {
		c.Export.Format = ExportCSV
	} else {
		c.Export.Format = ExportXLSX
	}
}

func (c *Config) normalizeReport() {
	c.Report.Title = strings.TrimSpace(c.Report.Title)
	if c.Report.Title == "" {
		c.Report.Title = defaultReportTitle
	}
	c.Report.ImageBase = strings.TrimRight(strings.TrimSpace(c.Report.ImageBase), "/")
	if c.Report.ImageBase != "" {
		return
	}
	rel, err := filepath.Rel(filepath.Dir(c.Paths.ReportPath), c.Paths.SourceDir)
	if err != nil {
		c.Report.ImageBase = filepath.ToSlash(c.Paths.SourceDir)
		return
	}
	c.Report.ImageBase = filepath.ToSlash(rel)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
