package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where testhub looks for its config when no --config flag is given.
const DefaultPath = ".testhub/config.yaml"

// Config holds all testhub configuration.
type Config struct {
	// Backend test-generation service
	Backend BackendConfig `yaml:"backend"`

	// Defaults for the language/framework fields of the form
	Defaults DefaultsConfig `yaml:"defaults"`

	// Client-side upload behaviour
	Upload UploadConfig `yaml:"upload"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig locates the upload-and-generate endpoint.
type BackendConfig struct {
	BaseURL  string `yaml:"base_url"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultsConfig seeds the free-text target fields.
type DefaultsConfig struct {
	Language  string `yaml:"language"`
	Framework string `yaml:"framework"`
}

// UploadConfig configures local validation of selected files.
type UploadConfig struct {
	// MaxBytes rejects larger files before they reach the network. 0 disables the check.
	MaxBytes int64 `yaml:"max_bytes"`

	// WatchSelection discards a generated script when the selected file changes on disk.
	WatchSelection bool `yaml:"watch_selection"`
}

// UIConfig configures the interactive interface.
type UIConfig struct {
	Theme                string `yaml:"theme"` // light, dark
	ClipboardStatusDelay string `yaml:"clipboard_status_delay"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // path, "stderr", or empty to disable
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:  "http://localhost:5001",
			Endpoint: "/api/upload-and-generate",
		},

		Defaults: DefaultsConfig{
			Language:  "python",
			Framework: "unittest",
		},

		Upload: UploadConfig{
			MaxBytes:       16 * 1024 * 1024,
			WatchSelection: false,
		},

		UI: UIConfig{
			Theme:                "light",
			ClipboardStatusDelay: "2s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
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
	if url := os.Getenv("TESTHUB_BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if lang := os.Getenv("TESTHUB_LANGUAGE"); lang != "" {
		c.Defaults.Language = lang
	}
	if fw := os.Getenv("TESTHUB_FRAMEWORK"); fw != "" {
		c.Defaults.Framework = fw
	}
	if level := os.Getenv("TESTHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dark, err := strconv.ParseBool(os.Getenv("TESTHUB_DARK_MODE")); err == nil && dark {
		c.UI.Theme = "dark"
	}
}

// EndpointURL joins the backend base URL and endpoint path.
func (c *Config) EndpointURL() string {
	base := strings.TrimRight(c.Backend.BaseURL, "/")
	endpoint := c.Backend.Endpoint
	if endpoint == "" {
		endpoint = "/api/upload-and-generate"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return base + endpoint
}

// GetClipboardStatusDelay returns how long a transient clipboard status stays visible.
func (c *Config) GetClipboardStatusDelay() time.Duration {
	d, err := time.ParseDuration(c.UI.ClipboardStatusDelay)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// IsDark reports whether the dark theme was requested.
func (c *Config) IsDark() bool {
	return strings.EqualFold(c.UI.Theme, "dark")
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend base_url not configured (set backend.base_url or TESTHUB_BACKEND_URL)")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("invalid backend base_url: %s (must start with http:// or https://)", c.Backend.BaseURL)
	}
	if c.Upload.MaxBytes < 0 {
		return fmt.Errorf("invalid upload max_bytes: %d", c.Upload.MaxBytes)
	}

	if c.Logging.Level != "" {
		validLevel := false
		for _, l := range ValidLogLevels {
			if c.Logging.Level == l {
				validLevel = true
				break
			}
		}
		if !validLevel {
			return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
		}
	}

	return nil
}
