package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Goal storage modes.
const (
	GoalsModeRemote = "remote"
	GoalsModeLocal  = "local"
)

// APIConfig holds the settings for the remote REST service.
type APIConfig struct {
	// BaseURL is the root URL of the service (e.g., http://localhost:5000).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a rate limited (429) request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// PollSec is how often the dashboard reloads remote collections in the
	// background. Zero disables polling.
	PollSec int `mapstructure:"poll_sec" yaml:"poll_sec"`

	TasksPath string `mapstructure:"tasks_path" yaml:"tasks_path"`
	GoalsPath string `mapstructure:"goals_path" yaml:"goals_path"`
	LoginPath string `mapstructure:"login_path" yaml:"login_path"`
}

// Timeout returns TimeoutSec as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// GoalsConfig controls where goals are kept.
type GoalsConfig struct {
	// Mode is "remote" (REST API) or "local" (local key/value store only).
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// ToastSec is how long a notification stays in the status bar.
	ToastSec int `mapstructure:"toast_sec" yaml:"toast_sec"`

	// DarkMode forces "true" or "false"; empty uses the stored preference.
	DarkMode string `mapstructure:"dark_mode" yaml:"dark_mode"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Goals   GoalsConfig   `mapstructure:"goals" yaml:"goals"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/nailedit, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "nailedit")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/nailedit/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:5000",
			TimeoutSec: 30,
			MaxRetries: 2,
			PollSec:    60,
			TasksPath:  "/api/tasks",
			GoalsPath:  "/api/goals",
			LoginPath:  "/api/auth/login",
		},
		Goals:   GoalsConfig{Mode: GoalsModeRemote},
		Storage: StorageConfig{Path: filepath.Join(ConfigDir(), "nailedit.db")},
		Display: DisplayConfig{ToastSec: 3},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "nailedit.log"),
		},
	}
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	return defaultAppConfig()
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NAILEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values (and so
	// AutomaticEnv knows which keys exist).
	d := defaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("api.poll_sec", d.API.PollSec)
	v.SetDefault("api.tasks_path", d.API.TasksPath)
	v.SetDefault("api.goals_path", d.API.GoalsPath)
	v.SetDefault("api.login_path", d.API.LoginPath)
	v.SetDefault("goals.mode", d.Goals.Mode)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("display.toast_sec", d.Display.ToastSec)
	v.SetDefault("display.dark_mode", d.Display.DarkMode)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus NAILEDIT_* environment
// overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values that cannot be used.
func (c *AppConfig) Validate() error {
	switch c.Goals.Mode {
	case GoalsModeRemote, GoalsModeLocal:
	default:
		return fmt.Errorf("goals.mode must be %q or %q, got %q",
			GoalsModeRemote, GoalsModeLocal, c.Goals.Mode)
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 30
	}
	if c.API.MaxRetries < 0 {
		c.API.MaxRetries = 0
	}
	if c.API.PollSec < 0 {
		c.API.PollSec = 0
	}
	if c.Display.ToastSec <= 0 {
		c.Display.ToastSec = 3
	}
	switch c.Display.DarkMode {
	case "", "true", "false":
	default:
		return fmt.Errorf("display.dark_mode must be true, false or empty, got %q", c.Display.DarkMode)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("goals", cfg.Goals)
	v.Set("storage", cfg.Storage)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
