// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/schemas"
)

// Environment variable names
const (
	EnvLLMProvider        = "LLM_PROVIDER"
	EnvAPIKey             = "LLM_API_KEY"
	EnvBaseURL            = "LLM_BASE_URL"
	EnvModel              = "LLM_MODEL"
	EnvLLMTimeout         = "LLM_TIMEOUT"
	EnvPDFEngine          = "PDF_ENGINE"
	EnvPDFEnginePath      = "PDF_ENGINE_PATH"
	EnvPDFTimeout         = "PDF_TIMEOUT"
	EnvOutputDir          = "OUTPUT_DIR"
	EnvPort               = "PORT"
	EnvMaxUploadBytes     = "MAX_UPLOAD_BYTES"
	EnvSessionIdleTimeout = "SESSION_IDLE_TIMEOUT"
	EnvVerbose            = "VERBOSE"
)

// providerKeyEnv is the provider-specific API key variable consulted when
// LLM_API_KEY is unset
var providerKeyEnv = map[llm.Provider]string{
	llm.ProviderMistral: "MISTRAL_API_KEY",
	llm.ProviderOpenAI:  "OPENAI_API_KEY",
	llm.ProviderGemini:  "GEMINI_API_KEY",
}

// Duration is a time.Duration that reads and writes as a Go duration string ("90s")
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config represents the application configuration. It can be loaded from a
// JSON file, from the environment, or both; all fields are optional.
type Config struct {
	// Language model
	LLMProvider string   `json:"llm_provider,omitempty"` // mistral, openai or gemini
	APIKey      string   `json:"api_key,omitempty"`      // Bearer credential for the provider
	BaseURL     string   `json:"base_url,omitempty"`     // Chat completions endpoint base
	Model       string   `json:"model,omitempty"`        // Model identifier
	LLMTimeout  Duration `json:"llm_timeout,omitempty"`  // Per-request timeout, 0 for none

	// Rendering
	PDFEngine     string   `json:"pdf_engine,omitempty"`      // chrome or wkhtmltopdf
	PDFEnginePath string   `json:"pdf_engine_path,omitempty"` // Browser or wkhtmltopdf binary
	PDFTimeout    Duration `json:"pdf_timeout,omitempty"`     // Conversion timeout
	OutputDir     string   `json:"output_dir,omitempty"`      // Directory for the HTML and PDF artifacts

	// Server
	Port               int      `json:"port,omitempty"`
	MaxUploadBytes     int64    `json:"max_upload_bytes,omitempty"`
	SessionIdleTimeout Duration `json:"session_idle_timeout,omitempty"` // 0 disables eviction

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		LLMProvider:        string(llm.ProviderMistral),
		PDFEngine:          rendering.EngineChrome,
		PDFTimeout:         Duration(rendering.DefaultConversionTimeout),
		OutputDir:          ".",
		Port:               8080,
		MaxUploadBytes:     10 << 20,
		SessionIdleTimeout: Duration(time.Hour),
	}
}

// LoadConfig loads configuration from a JSON file.
// The document is validated against the embedded config schema before parsing.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to parse config JSON: %s is not valid JSON", path)
	}

	if err := schemas.Validate(schemas.ConfigSchema, data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv reads configuration from environment variables. Unset
// variables leave the corresponding field empty.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LLMProvider:   strings.ToLower(strings.TrimSpace(os.Getenv(EnvLLMProvider))),
		APIKey:        os.Getenv(EnvAPIKey),
		BaseURL:       os.Getenv(EnvBaseURL),
		Model:         os.Getenv(EnvModel),
		PDFEngine:     os.Getenv(EnvPDFEngine),
		PDFEnginePath: os.Getenv(EnvPDFEnginePath),
		OutputDir:     os.Getenv(EnvOutputDir),
	}

	var err error
	if cfg.LLMTimeout, err = envDuration(EnvLLMTimeout); err != nil {
		return nil, err
	}
	if cfg.PDFTimeout, err = envDuration(EnvPDFTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = envDuration(EnvSessionIdleTimeout); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config error: %s must be an integer: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvMaxUploadBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config error: %s must be an integer: %w", EnvMaxUploadBytes, err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := os.Getenv(EnvVerbose); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config error: %s must be a boolean: %w", EnvVerbose, err)
		}
		cfg.Verbose = verbose
	}

	return cfg, nil
}

// envDuration parses a duration variable. A bare integer is taken as seconds.
func envDuration(name string) (Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return Duration(time.Duration(secs) * time.Second), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config error: %s must be a duration such as 90s: %w", name, err)
	}
	return Duration(d), nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for the API key, which is only needed by
// commands that call the language model.
func (c *Config) Validate() error {
	switch llm.Provider(c.LLMProvider) {
	case "", llm.ProviderMistral, llm.ProviderOpenAI, llm.ProviderGemini:
	default:
		return fmt.Errorf("config error: unsupported llm_provider %q", c.LLMProvider)
	}

	switch strings.ToLower(c.PDFEngine) {
	case "", rendering.EngineChrome, rendering.EngineWkhtmltopdf:
	default:
		return fmt.Errorf("config error: unsupported pdf_engine %q", c.PDFEngine)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535")
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("config error: 'max_upload_bytes' must be non-negative")
	}
	if c.LLMTimeout < 0 || c.PDFTimeout < 0 || c.SessionIdleTimeout < 0 {
		return fmt.Errorf("config error: timeouts must be non-negative")
	}

	if c.PDFEnginePath != "" {
		if _, err := os.Stat(c.PDFEnginePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: pdf engine not found: %s", c.PDFEnginePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Layering env over file over built-ins is done by chaining calls.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.PDFEngine == "" {
		result.PDFEngine = defaults.PDFEngine
	}
	if result.PDFEnginePath == "" {
		result.PDFEnginePath = defaults.PDFEnginePath
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}

	// Numeric fields: use default if zero
	if result.LLMTimeout == 0 {
		result.LLMTimeout = defaults.LLMTimeout
	}
	if result.PDFTimeout == 0 {
		result.PDFTimeout = defaults.PDFTimeout
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if result.SessionIdleTimeout == 0 {
		result.SessionIdleTimeout = defaults.SessionIdleTimeout
	}

	// Bool fields: cannot distinguish unset from false, so either source enables
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// LLMConfig returns the language model client configuration. When no API key
// is configured the provider-specific variable (MISTRAL_API_KEY and so on) is used.
func (c *Config) LLMConfig() *llm.Config {
	provider := llm.Provider(c.LLMProvider)
	if provider == "" {
		provider = llm.ProviderMistral
	}

	cfg := llm.ProviderDefaults(provider)
	cfg.APIKey = c.APIKey
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(providerKeyEnv[provider])
	}
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.Model != "" {
		cfg.Model = c.Model
	}
	cfg.Timeout = time.Duration(c.LLMTimeout)
	return cfg
}
