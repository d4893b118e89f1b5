package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"chatterm/internal/chat"
	"chatterm/internal/llm"
)

// DefaultSystemPrompt is sent before the conversation on every remote call
const DefaultSystemPrompt = "You are a helpful Korean AI assistant. 답변은 가능한 한 간결하고 정확하게, 한국어로 해주세요."

// Config holds all application configuration
type Config struct {
	// Model settings
	Provider     string        `toml:"provider"`
	APIKey       string        `toml:"api_key"`
	BaseURL      string        `toml:"base_url"`
	ModelName    string        `toml:"model"`
	Temperature  float64       `toml:"temperature"`
	SystemPrompt string        `toml:"system_prompt"`
	Stream       bool          `toml:"stream"`
	MaxTokens    int           `toml:"max_tokens"`
	Timeout      time.Duration `toml:"-"`

	// TimeoutSeconds mirrors Timeout in the config file
	TimeoutSeconds int `toml:"timeout_seconds"`

	// Proxy overrides HTTP_PROXY/HTTPS_PROXY for remote calls
	Proxy   string `toml:"proxy"`
	NoProxy string `toml:"no_proxy"`

	// Logging
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Provider:     llm.ProviderOpenAI,
		ModelName:    "gpt-4o-mini",
		Temperature:  0.7,
		SystemPrompt: DefaultSystemPrompt,
		Stream:       true,
		Timeout:      120 * time.Second,

		LogLevel: "warn",
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or
// the default location when path is empty), then .env and the environment.
// Flags are applied by the caller afterwards.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.LoadTOML(path); err != nil {
				return nil, err
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns ~/.chatterm/config.toml
func DefaultPath() string {
	return expandHome("~/.chatterm/config.toml")
}

// LoadTOML overlays values from a TOML file onto c
func (c *Config) LoadTOML(path string) error {
	c.TimeoutSeconds = 0
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if c.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	return nil
}

// ApplyEnvOverrides reads OPENAI_API_KEY and CHATTERM_* variables
func (c *Config) ApplyEnvOverrides() error {
	if v := GetEnv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := GetEnv("CHATTERM_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := GetEnv("CHATTERM_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := GetEnv("CHATTERM_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := GetEnv("CHATTERM_MODEL"); v != "" {
		c.ModelName = v
	}
	if v := GetEnv("CHATTERM_SYSTEM_PROMPT"); v != "" {
		c.SystemPrompt = v
	}
	if v := GetEnv("CHATTERM_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := GetEnv("CHATTERM_NO_PROXY"); v != "" {
		c.NoProxy = v
	}
	if v := GetEnv("CHATTERM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := GetEnv("CHATTERM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CHATTERM_TEMPERATURE: %w", err)
		}
		c.Temperature = f
	}
	if v := GetEnv("CHATTERM_STREAM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATTERM_STREAM: %w", err)
		}
		c.Stream = b
	}
	if v := GetEnv("CHATTERM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHATTERM_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if math.IsNaN(c.Temperature) || c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0.0 and 1.0, got %.2f", c.Temperature)
	}
	if !slices.Contains(llm.Providers(), c.Provider) {
		return fmt.Errorf("unknown provider %q (want one of %s)", c.Provider, strings.Join(llm.Providers(), ", "))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid proxy URL %q", c.Proxy)
		}
	}
	return nil
}

// Settings that can be changed during a session
const (
	SettingModel        = "model"
	SettingTemperature  = "temperature"
	SettingStream       = "stream"
	SettingSystemPrompt = "system_prompt"
	SettingAPIKey       = "api_key"
)

// Set changes one session setting. The change is validated first and c is
// left untouched when it fails.
func (c *Config) Set(name, value string) error {
	next := *c
	value = strings.TrimSpace(value)

	switch name {
	case SettingModel:
		next.ModelName = value
	case SettingTemperature:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q", value)
		}
		next.Temperature = f
	case SettingStream:
		b, err := parseSwitch(value)
		if err != nil {
			return err
		}
		next.Stream = b
	case SettingSystemPrompt:
		next.SystemPrompt = value
	case SettingAPIKey:
		next.APIKey = value
	default:
		return fmt.Errorf("unknown setting %q", name)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// parseSwitch accepts on/off in addition to the strconv boolean forms
func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
	return b, nil
}

// LLMOptions returns the options used to build the remote backend
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider:  c.Provider,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		Timeout:   c.Timeout,
		MaxTokens: c.MaxTokens,
		Proxy:     c.Proxy,
		NoProxy:   c.NoProxy,
	}
}

// Settings projects the configuration onto the controller's settings
func (c *Config) Settings(remoteAvailable bool) chat.Settings {
	return chat.Settings{
		APIKey:          c.APIKey,
		ModelName:       c.ModelName,
		Temperature:     c.Temperature,
		SystemPrompt:    c.SystemPrompt,
		Streaming:       c.Stream,
		MaxTokens:       c.MaxTokens,
		RemoteAvailable: remoteAvailable,
	}
}

// MaskedAPIKey returns the key with all but the last four characters hidden
func (c *Config) MaskedAPIKey() string {
	if c.APIKey == "" {
		return "(none)"
	}
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return "****" + c.APIKey[len(c.APIKey)-4:]
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		return filepath.Join(getHomeDir(), path[1:])
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = os.Getenv
