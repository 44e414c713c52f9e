package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"catalogscan/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains source and output locations.
type Paths struct {
	SourceDir  string `toml:"source_dir"`
	StorePath  string `toml:"store_path"`
	ExportPath string `toml:"export_path"`
	ReportPath string `toml:"report_path"`
	LogDir     string `toml:"log_dir"`
}

// InferenceOptions are the decoding parameters sent with every request.
// ContextWindow is Ollama's num_ctx and is ignored by hosted providers.
// MaxOutputTokens caps the answer length on OpenRouter and Gemini; zero
// keeps the provider default.
type InferenceOptions struct {
	Temperature     float64 `toml:"temperature"`
	ContextWindow   int     `toml:"context_window"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	TopP            float64 `toml:"top_p"`
}

// Inference selects and configures the vision model backend.
type Inference struct {
	Provider       string           `toml:"provider"` // ollama, openrouter, gemini
	BaseURL        string           `toml:"base_url"`
	Model          string           `toml:"model"`
	APIKey         string           `toml:"api_key"`
	TimeoutSeconds int              `toml:"timeout_seconds"`
	PromptFile     string           `toml:"prompt_file"`
	Options        InferenceOptions `toml:"options"`
}

// Pipeline contains the orchestrator's retry/skip policy.
type Pipeline struct {
	Extensions          []string `toml:"extensions"`
	InferenceAttempts   int      `toml:"inference_attempts"`
	RetryBackoffSeconds int      `toml:"retry_backoff_seconds"`
	// EnumPolicy decides what happens to records whose classification values
	// are outside the vocabulary: "review" commits them flagged, "reject"
	// leaves the item pending for the next run.
	EnumPolicy string `toml:"enum_policy"`
	// Limit caps how many pending items one run processes (0 = all).
	Limit int `toml:"limit"`
}

// Vocabulary points at an optional YAML file overriding the built-in closed
// vocabularies.
type Vocabulary struct {
	Path string `toml:"path"`
}

// Replacement maps a forbidden term to its mandated replacement.
type Replacement struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Normalizer holds the ordered term replacement table. When empty the
// built-in table is used.
type Normalizer struct {
	Replacements []Replacement `toml:"replacements"`
}

// Export configures the tabular export.
type Export struct {
	Format string `toml:"format"` // xlsx or csv; derived from export_path when empty
}

// Report configures the HTML report.
type Report struct {
	Title     string `toml:"title"`
	ImageBase string `toml:"image_base"`
}

// Sinks enables optional output representations.
type Sinks struct {
	SQLitePath string `toml:"sqlite_path"`
}

// Notifications configures the optional ntfy push sent after each run.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for catalogscan.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Inference     Inference     `toml:"inference"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Vocabulary    Vocabulary    `toml:"vocabulary"`
	Normalizer    Normalizer    `toml:"normalizer"`
	Export        Export        `toml:"export"`
	Report        Report        `toml:"report"`
	Sinks         Sinks         `toml:"sinks"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The boolean reports whether a file was
// actually read; a missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath picks the config file. An explicit path is used as given
// even when missing; otherwise the user config wins over ./catalogscan.toml,
// and the user path is reported when neither exists.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isConfigFile(expanded)
		return expanded, exists, err
	}

	candidates := make([]string, 0, 2)
	for _, raw := range []string{defaultConfigPath, projectConfigName} {
		expanded, err := expandPath(raw)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, expanded)
	}
	for _, candidate := range candidates {
		if ok, _ := isConfigFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return candidates[0], false, nil
}

func isConfigFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the parent directories of every output file. The
// source directory is left to the scanner, which creates it on first run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Paths.StorePath),
		filepath.Dir(c.Paths.ExportPath),
		filepath.Dir(c.Paths.ReportPath),
	}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	if c.Sinks.SQLitePath != "" {
		dirs = append(dirs, filepath.Dir(c.Sinks.SQLitePath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the advisory lock file guarding the durable store.
func (c *Config) LockPath() string {
	return c.Paths.StorePath + ".lock"
}

// EnumPolicyReject reports whether out-of-vocabulary records are rejected
// instead of committed for review.
func (c *Config) EnumPolicyReject() bool {
	return c.Pipeline.EnumPolicy == EnumPolicyReject
}

// expandPath resolves "~" and "~/..." against the home directory and makes
// the result absolute.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML with the API key masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	if masked.Inference.APIKey != "" {
		masked.Inference.APIKey = "********"
	}
	return toml.Marshal(masked)
}
