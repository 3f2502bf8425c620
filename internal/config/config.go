package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all surveyNERD configuration.
type Config struct {
	// Oracle configuration
	Oracle OracleConfig `json:"oracle"`

	// Browser configuration
	Browser BrowserConfig `json:"browser"`

	// Persona profile path (YAML)
	PersonaPath string `json:"persona_path"`

	// Learning store directory
	LearnDir string `json:"learn_dir"`

	// Session report database path
	ReportDB string `json:"report_db"`

	// Optional directory for per-page screenshot audit trail
	SnapshotDir string `json:"snapshot_dir,omitempty"`

	// Logging
	Logging LoggingConfig `json:"logging"`
}

// OracleConfig configures the Gemini transcription and answer oracles.
type OracleConfig struct {
	APIKey          string `json:"api_key,omitempty"`
	TranscribeModel string `json:"transcribe_model"`
	AnswerModel     string `json:"answer_model"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	// Attach to an already-running Chrome via its debugger URL.
	// Empty means launch a fresh instance.
	DebuggerURL string `json:"debugger_url,omitempty"`

	Headless       bool `json:"headless"`
	ViewportWidth  int  `json:"viewport_width"`
	ViewportHeight int  `json:"viewport_height"`

	NavigationTimeoutMs int `json:"navigation_timeout_ms"`
	SettleTimeoutMs     int `json:"settle_timeout_ms"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `json:"level"` // debug, info, warn, error
	File  string `json:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".surveynerd")

	return &Config{
		Oracle: OracleConfig{
			TranscribeModel: "gemini-2.5-flash",
			AnswerModel:     "gemini-2.5-flash",
			TimeoutSeconds:  45,
		},
		Browser: BrowserConfig{
			Headless:            false,
			ViewportWidth:       1440,
			ViewportHeight:      900,
			NavigationTimeoutMs: 30000,
			SettleTimeoutMs:     8000,
		},
		PersonaPath: filepath.Join(base, "persona.yaml"),
		LearnDir:    filepath.Join(base, "learn"),
		ReportDB:    filepath.Join(base, "sessions.db"),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".surveynerd", "config.json")
}

// Load loads configuration from a JSON file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
	}
	if key := os.Getenv("SURVEYNERD_API_KEY"); key != "" {
		c.Oracle.APIKey = key
	}
	if model := os.Getenv("SURVEYNERD_TRANSCRIBE_MODEL"); model != "" {
		c.Oracle.TranscribeModel = model
	}
	if model := os.Getenv("SURVEYNERD_ANSWER_MODEL"); model != "" {
		c.Oracle.AnswerModel = model
	}
	if url := os.Getenv("SURVEYNERD_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
	if v := os.Getenv("SURVEYNERD_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = headless
		}
	}
	if dir := os.Getenv("SURVEYNERD_LEARN_DIR"); dir != "" {
		c.LearnDir = dir
	}
	if path := os.Getenv("SURVEYNERD_PERSONA"); path != "" {
		c.PersonaPath = path
	}
	if path := os.Getenv("SURVEYNERD_REPORT_DB"); path != "" {
		c.ReportDB = path
	}
	if level := os.Getenv("SURVEYNERD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the fields the run command cannot proceed without.
func (c *Config) Validate() error {
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("no oracle API key: set GEMINI_API_KEY or oracle.api_key in config")
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		return fmt.Errorf("oracle.timeout_seconds must be positive")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	return nil
}
