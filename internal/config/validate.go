package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNormalizer(); err != nil {
		return err
	}
	switch c.Export.Format {
	case ExportXLSX, ExportCSV:
	default:
		return fmt.Errorf("export.format must be %q or %q, got %q", ExportXLSX, ExportCSV, c.Export.Format)
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	outputs := map[string]string{
		"paths.store_path":  c.Paths.StorePath,
		"paths.export_path": c.Paths.ExportPath,
		"paths.report_path": c.Paths.ReportPath,
	}
	if c.Sinks.SQLitePath != "" {
		outputs["sinks.sqlite_path"] = c.Sinks.SQLitePath
	}
	seen := make(map[string]string, len(outputs))
	for name, path := range outputs {
		if path == "" {
			return fmt.Errorf("%s must be set", name)
		}
		if other, ok := seen[path]; ok {
			return fmt.Errorf("%s and %s point to the same file %q", name, other, path)
		}
		seen[path] = name
		if path == c.Paths.SourceDir {
			return fmt.Errorf("%s must not be the source directory", name)
		}
	}
	return nil
}

func (c *Config) validateInference() error {
	inf := c.Inference
	switch inf.Provider {
	case ProviderOllama:
	case ProviderOpenRouter, ProviderGemini:
		if inf.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("inference.api_key is required for provider %q. Set CATALOGSCAN_API_KEY or edit %s (create with 'catalogscan config init')", inf.Provider, defaultPath)
		}
	default:
		return fmt.Errorf("inference.provider must be one of %s, %s, %s; got %q", ProviderOllama, ProviderOpenRouter, ProviderGemini, inf.Provider)
	}
	if inf.Model == "" {
		return errors.New("inference.model must be set")
	}
	if inf.Options.Temperature < 0 || inf.Options.Temperature > 2 {
		return errors.New("inference.options.temperature must be between 0 and 2")
	}
	if inf.Options.TopP < 0 || inf.Options.TopP > 1 {
		return errors.New("inference.options.top_p must be between 0 and 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.EnumPolicy {
	case EnumPolicyReview, EnumPolicyReject:
	default:
		return fmt.Errorf("pipeline.enum_policy must be %q or %q, got %q", EnumPolicyReview, EnumPolicyReject, c.Pipeline.EnumPolicy)
	}
	if c.Pipeline.InferenceAttempts > 10 {
		return errors.New("pipeline.inference_attempts must be at most 10")
	}
	return nil
}

func (c *Config) validateNormalizer() error {
	for i, r := range c.Normalizer.Replacements {
		if strings.TrimSpace(r.From) == "" {
			return fmt.Errorf("normalizer.replacements[%d].from must be set", i)
		}
		if strings.TrimSpace(r.To) == "" {
			return fmt.Errorf("normalizer.replacements[%d].to must be set", i)
		}
	}
	return nil
}
