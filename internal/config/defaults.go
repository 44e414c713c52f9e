package config

const (
	defaultConfigPath  = "~/.config/catalogscan/config.toml"
	projectConfigName  = "catalogscan.toml"
	defaultSourceDir   = "./imagenes_a_procesar"
	defaultStorePath   = "./productos.json"
	defaultExportPath  = "./catalogo.xlsx"
	defaultReportPath  = "./catalogo.html"
	defaultReportTitle = "Catálogo"

	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	defaultProvider          = ProviderOllama
	DefaultOllamaBaseURL     = "http://localhost:11434"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultOllamaModel       = "qwen2.5vl:3b"
	defaultOpenRouterModel   = "qwen/qwen2.5-vl-72b-instruct"
	defaultGeminiModel       = "gemini-2.5-flash"
	defaultTimeoutSeconds    = 300
	defaultTemperature       = 0.2
	defaultContextWindow     = 4096
	defaultTopP              = 0.9

	EnumPolicyReview = "review"
	EnumPolicyReject = "reject"

	ExportXLSX = "xlsx"
	ExportCSV  = "csv"

	defaultInferenceAttempts   = 1
	defaultRetryBackoffSeconds = 5
	defaultNtfyTimeoutSeconds  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:  defaultSourceDir,
			StorePath:  defaultStorePath,
			ExportPath: defaultExportPath,
			ReportPath: defaultReportPath,
		},
		Inference: Inference{
			Provider:       defaultProvider,
			TimeoutSeconds: defaultTimeoutSeconds,
			Options: InferenceOptions{
				Temperature:   defaultTemperature,
				ContextWindow: defaultContextWindow,
				TopP:          defaultTopP,
			},
		},
		Pipeline: Pipeline{
			Extensions:          append([]string(nil), defaultExtensions...),
			InferenceAttempts:   defaultInferenceAttempts,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
			EnumPolicy:          EnumPolicyReview,
		},
		Report: Report{
			Title: defaultReportTitle,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
