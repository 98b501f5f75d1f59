package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// APIKeyEnvVars are checked in order for the Gemini credential
var APIKeyEnvVars = []string{"GEMINI_API_KEY", "API_KEY"}

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	Gemini     GeminiConfig     `toml:"gemini"`     // Translation model settings
	History    HistoryConfig    `toml:"history"`    // Recent lookups settings
	Cache      CacheConfig      `toml:"cache"`      // Model reply cache settings
	UI         UIConfig         `toml:"ui"`         // Page settings
	Templating TemplatingConfig `toml:"templating"` // Prompt template settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // Primary HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response; must outlast a model call
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts  []int  `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// GeminiConfig contains the translation model settings
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Used only when neither GEMINI_API_KEY nor API_KEY is set
	Model          string  `toml:"model"`           // Model id
	Temperature    float64 `toml:"temperature"`     // Sampling temperature (0-2)
	EnableSearch   bool    `toml:"enable_search"`   // Ground replies with Google Search
	TimeoutSeconds int     `toml:"timeout_seconds"` // Transport timeout (0 = none)
	BaseURL        string  `toml:"base_url"`        // Override the API endpoint
}

// HistoryConfig contains the recent lookups settings
type HistoryConfig struct {
	Capacity int `toml:"capacity"` // Number of lookups retained, newest first
}

// CacheConfig contains the SQLite reply cache settings
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`     // Reuse model replies for repeated queries
	SQLitePath string `toml:"sqlite_path"` // Database file
	TTLMinutes int    `toml:"ttl_minutes"` // Reply lifetime (0 = never expires)
}

// UIConfig contains the page settings
type UIConfig struct {
	DefaultLocale  string `toml:"default_locale"`   // "en" or "ar"
	StaticFilesDir string `toml:"static_files_dir"` // Serve assets from disk instead of the embedded copy
}

// TemplatingConfig contains prompt template settings
type TemplatingConfig struct {
	PromptsDir string `toml:"prompts_dir"` // Override the embedded instruction and prompt templates
}

// Default returns the configuration used when no file is found. Decoding a
// file on top of it keeps the defaults for every key the file omits.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "127.0.0.1",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 120,
			IdleTimeoutSecs:  60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			Temperature:    0.3,
			EnableSearch:   true,
			TimeoutSeconds: 90,
		},
		History: HistoryConfig{Capacity: 5},
		Cache: CacheConfig{
			SQLitePath: "data/replies.db",
			TTLMinutes: 24 * 60,
		},
		UI: UIConfig{DefaultLocale: "en"},
	}
}

// Load reads the TOML file at path over the defaults
func Load(path string) (*Config, error) {
	config := Default()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	return config, nil
}

// LoadWithFallback loads the preferred path if given, otherwise the first of
// configs/config.toml and config.toml that exists. With no file at all the
// defaults are returned. A .env file in the working directory is loaded
// into the environment first, and the API key is resolved afterwards.
func LoadWithFallback(preferredPath string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	var config *Config
	if preferredPath != "" {
		// An explicit path must exist
		c, err := Load(preferredPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", preferredPath, err)
		}
		config = c
	} else {
		for _, path := range []string{
			"configs/config.toml", // configs/ folder
			"config.toml",         // Root directory
		} {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			c, err := Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			config = c
			break
		}
		if config == nil {
			config = Default()
		}
	}

	config.ApplyEnv()
	return config, nil
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv resolves the API key from the environment. The first non-blank
// variable of APIKeyEnvVars wins over gemini.api_key.
func (c *Config) ApplyEnv() {
	for _, name := range APIKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.Gemini.APIKey = v
			return
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := map[int]bool{c.Server.Port: true}
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	case "":
		c.Logging.Level = "info"
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	case "":
		c.Logging.Format = "console"
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Logging.Format)
	}

	if strings.TrimSpace(c.Gemini.Model) == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("invalid gemini temperature: %v (must be between 0 and 2)", c.Gemini.Temperature)
	}
	if c.Gemini.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid gemini timeout_seconds: %d (must be >= 0)", c.Gemini.TimeoutSeconds)
	}
	// No key check: a missing key surfaces on the first translation.

	if c.History.Capacity < 1 {
		return fmt.Errorf("invalid history capacity: %d (must be >= 1)", c.History.Capacity)
	}

	if c.Cache.Enabled && c.Cache.SQLitePath == "" {
		return fmt.Errorf("cache.sqlite_path is required when the cache is enabled")
	}
	if c.Cache.TTLMinutes < 0 {
		return fmt.Errorf("invalid cache ttl_minutes: %d (must be >= 0)", c.Cache.TTLMinutes)
	}

	switch c.UI.DefaultLocale {
	case "en", "ar":
	case "":
		c.UI.DefaultLocale = "en"
	default:
		return fmt.Errorf("invalid default_locale: %s (must be en or ar)", c.UI.DefaultLocale)
	}
	if c.UI.StaticFilesDir != "" {
		if _, err := os.Stat(c.UI.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.UI.StaticFilesDir)
		}
	}
	if c.Templating.PromptsDir != "" {
		if _, err := os.Stat(c.Templating.PromptsDir); os.IsNotExist(err) {
			return fmt.Errorf("prompts directory does not exist: %s", c.Templating.PromptsDir)
		}
	}

	return nil
}

// GeminiTimeout returns the model transport timeout
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}

// CacheTTL returns the reply lifetime; zero means replies never expire
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
