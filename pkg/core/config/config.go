package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/msto63/englishquery/pkg/core/apperr"
)

// Config holds the complete application configuration
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Database   DatabaseConfig   `toml:"database"`
	Translator TranslatorConfig `toml:"translator"`
	Listener   ListenerConfig   `toml:"listener"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name"`
	DataDir   string `toml:"data_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
}

// DatabaseConfig holds MariaDB connection defaults. Values pre-fill the
// login prompt; the password is never read from here by the query screen.
type DatabaseConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	User              string   `toml:"user"`
	Password          string   `toml:"password"`
	Name              string   `toml:"name"`
	Charset           string   `toml:"charset"`
	ManualCommit      bool     `toml:"manual_commit"`
	ReconnectAttempts int      `toml:"reconnect_attempts"`
	ReconnectDelay    Duration `toml:"reconnect_delay"`
	ConnectTimeout    Duration `toml:"connect_timeout"`
	StreamChunkSize   int      `toml:"stream_chunk_size"`
}

// TranslatorConfig holds the natural-language-to-SQL provider settings
type TranslatorConfig struct {
	Provider        string   `toml:"provider"`
	Model           string   `toml:"model"`
	ReasoningEffort string   `toml:"reasoning_effort"`
	Temperature     float32  `toml:"temperature"`
	BaseURL         string   `toml:"base_url"`
	APIKeyEnv       string   `toml:"api_key_env"`
	Timeout         Duration `toml:"timeout"`
	PromptFile      string   `toml:"prompt_file"`
	PromptName      string   `toml:"prompt_name"`
	WatchPrompts    bool     `toml:"watch_prompts"`
	IncludeSchema   bool     `toml:"include_schema"`
	ReadOnly        bool     `toml:"read_only"`
	HistoryFile     string   `toml:"history_file"`
	Conversation    string   `toml:"conversation"`
	HistoryLimit    int      `toml:"history_limit"`
	ResetHistory    bool     `toml:"reset_history"`
}

// ListenerConfig holds speech recognition settings. Capture thresholds live
// in the listener's own settings file so they can be tuned without
// touching the application config.
type ListenerConfig struct {
	SettingsFile       string   `toml:"settings_file"`
	SampleRate         int      `toml:"sample_rate"`
	VADMode            int      `toml:"vad_mode"`
	Language           string   `toml:"language"`
	TranscriptionURL   string   `toml:"transcription_url"`
	TranscriptionModel string   `toml:"transcription_model"`
	RequestTimeout     Duration `toml:"request_timeout"`
	StopTimeout        Duration `toml:"stop_timeout"`
}

// MetricsConfig holds Prometheus exporter settings
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperr.New(apperr.CodeConfiguration, "config file not found: "+path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, apperr.Wrap(fmt.Errorf("failed to parse config: %w", err), apperr.CodeConfiguration, "config.Load")
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the EQUERY_CONFIG environment variable
// or the first default location that exists. Without any file the defaults
// are returned.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv("EQUERY_CONFIG"); path != "" {
		return Load(path)
	}
	for _, p := range DefaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

// DefaultPaths lists the locations searched by LoadFromEnv
func DefaultPaths() []string {
	paths := []string{"./equery.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "equery", "config.toml"))
	}
	return paths
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "englishquery"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = defaultDataDir()
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}

	// Database
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.ReconnectAttempts == 0 {
		c.Database.ReconnectAttempts = 3
	}
	if c.Database.ReconnectDelay.Duration == 0 {
		c.Database.ReconnectDelay.Duration = 2 * time.Second
	}
	if c.Database.ConnectTimeout.Duration == 0 {
		c.Database.ConnectTimeout.Duration = 10 * time.Second
	}
	if c.Database.StreamChunkSize == 0 {
		c.Database.StreamChunkSize = 1000
	}

	// Translator
	if c.Translator.Provider == "" {
		c.Translator.Provider = "openai"
	}
	if c.Translator.Model == "" {
		switch c.Translator.Provider {
		case "gemini":
			c.Translator.Model = "gemini-2.5-flash"
		default:
			c.Translator.Model = "gpt-5-nano"
		}
	}
	if c.Translator.ReasoningEffort == "" {
		c.Translator.ReasoningEffort = "low"
	}
	if c.Translator.APIKeyEnv == "" {
		switch c.Translator.Provider {
		case "gemini":
			c.Translator.APIKeyEnv = "GEMINI_API_KEY"
		default:
			c.Translator.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if c.Translator.Timeout.Duration == 0 {
		c.Translator.Timeout.Duration = 60 * time.Second
	}
	if c.Translator.PromptName == "" {
		c.Translator.PromptName = "english_to_sql"
	}
	if c.Translator.HistoryFile == "" {
		c.Translator.HistoryFile = filepath.Join(c.General.DataDir, "history.db")
	}
	if c.Translator.Conversation == "" {
		c.Translator.Conversation = "english_query"
	}
	if c.Translator.HistoryLimit == 0 {
		c.Translator.HistoryLimit = 10
	}

	// Listener
	if c.Listener.SettingsFile == "" {
		c.Listener.SettingsFile = filepath.Join(c.General.DataDir, "listener.json")
	}
	if c.Listener.SampleRate == 0 {
		c.Listener.SampleRate = 16000
	}
	if c.Listener.Language == "" {
		c.Listener.Language = "en"
	}
	if c.Listener.TranscriptionModel == "" {
		c.Listener.TranscriptionModel = "whisper-1"
	}
	if c.Listener.RequestTimeout.Duration == 0 {
		c.Listener.RequestTimeout.Duration = 30 * time.Second
	}
	if c.Listener.StopTimeout.Duration == 0 {
		c.Listener.StopTimeout.Duration = time.Second
	}

	// Metrics
	if c.Metrics.Address == "" {
		c.Metrics.Address = "127.0.0.1:9464"
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.General.LogFile = os.ExpandEnv(c.General.LogFile)
	c.Database.Password = os.ExpandEnv(c.Database.Password)
	c.Translator.PromptFile = os.ExpandEnv(c.Translator.PromptFile)
	c.Translator.HistoryFile = os.ExpandEnv(c.Translator.HistoryFile)
	c.Listener.SettingsFile = os.ExpandEnv(c.Listener.SettingsFile)
}

// APIKey returns the translator API key from the configured environment
// variable. A missing key is a configuration error.
func (c *Config) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(c.Translator.APIKeyEnv))
	if key == "" {
		return "", apperr.New(apperr.CodeConfiguration,
			fmt.Sprintf("%s environment variable not set", c.Translator.APIKeyEnv))
	}
	return key, nil
}

// DatabaseAddress returns host:port of the configured database
func (c *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "equery")
	}
	return "./data"
}
