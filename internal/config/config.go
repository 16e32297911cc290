package config

// Config represents the full application configuration.
type Config struct {
	Git           GitConfig           `yaml:"git"`
	SSH           SSHConfig           `yaml:"ssh"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Retry         RetryConfig         `yaml:"retry"`
	Store         StoreConfig         `yaml:"store"`
	Output        OutputConfig        `yaml:"output"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// GitConfig configures branch comparison and the local working copy.
type GitConfig struct {
	BaseBranch string `yaml:"baseBranch"`
	// LocalPathRoot is the directory under which per-mode working
	// copies are created when --local-path is not given. Empty means
	// a directory under the system temp dir.
	LocalPathRoot string `yaml:"localPathRoot"`
}

// SSHConfig configures transport credentials for git subprocesses.
type SSHConfig struct {
	KeyPath          string `yaml:"keyPath"`
	SkipHostKeyCheck bool   `yaml:"skipHostKeyCheck"`
}

// GeminiConfig configures the AI service call.
type GeminiConfig struct {
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"apiKey"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"maxOutputTokens"`
	Timeout         string  `yaml:"timeout"`
}

// RetryConfig holds the AI call retry policy.
type RetryConfig struct {
	MaxAttempts  int     `yaml:"maxAttempts"`
	InitialDelay string  `yaml:"initialDelay"`
	Multiplier   float64 `yaml:"multiplier"`
}

// StoreConfig configures the run-history persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig configures review artifact output.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`  // debug, info, error
	Format        string `yaml:"format"` // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}
