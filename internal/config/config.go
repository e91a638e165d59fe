// Package config loads pilot's configuration via viper, bound into a plain
// mapstructure-tagged tree. Unlike the scanner this project grew from, there
// is no Interface/getter-setter indirection here — callers read fields
// directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration tree for a pilot run.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails" yaml:"guardrails"`
	Memory     MemoryConfig     `mapstructure:"memory" yaml:"memory"`
	Controller ControllerConfig `mapstructure:"controller" yaml:"controller"`
}

// LoggerConfig mirrors the zap setup in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	FilePath    string `mapstructure:"file_path" yaml:"file_path"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// BrowserConfig holds settings for the chromedp-driven headless instance.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StabilizeQuiet  time.Duration `mapstructure:"stabilize_quiet" yaml:"stabilize_quiet"`
	Cursor          CursorConfig  `mapstructure:"cursor" yaml:"cursor"`
}

// CursorConfig tunes the interpolated-move cursor physics.
type CursorConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Steps      int           `mapstructure:"steps" yaml:"steps"`
	JitterPx   float64       `mapstructure:"jitter_px" yaml:"jitter_px"`
	StepDelay  time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	HoverDelay time.Duration `mapstructure:"hover_delay" yaml:"hover_delay"`
	PressDelay time.Duration `mapstructure:"press_delay" yaml:"press_delay"`
}

// LLMConfig selects and tunes the genai-backed model router.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider" yaml:"provider"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	FastModel     string        `mapstructure:"fast_model" yaml:"fast_model"`
	PowerfulModel string        `mapstructure:"powerful_model" yaml:"powerful_model"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// GuardrailsConfig configures the deny/confirm rules applied before ACT.
// The sensitive-field and secret-marker keyword lists are a fixed safety
// baseline (not config-driven); only the confirm-required keywords and the
// domain allowlist are deployment-specific.
type GuardrailsConfig struct {
	RiskyRoles     []string `mapstructure:"require_confirm_for" yaml:"require_confirm_for"`
	AllowedDomains []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`
}

// MemoryConfig selects the HistoryStore backend.
type MemoryConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	RingSize   int    `mapstructure:"ring_size" yaml:"ring_size"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// ControllerConfig tunes the OBSERVE/DECIDE/ACT/VERIFY loop's budgets.
type ControllerConfig struct {
	MaxSteps       int  `mapstructure:"max_steps" yaml:"max_steps"`
	MaxAutoScrolls int  `mapstructure:"max_auto_scrolls" yaml:"max_auto_scrolls"`
	ResetStepCount bool `mapstructure:"reset_step_count" yaml:"reset_step_count"`
}

// Default returns the configuration used when no file or env override is
// present.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "pilot",
			MaxSizeMB:   100,
			MaxBackups:  3,
			MaxAgeDays:  28,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			StabilizeQuiet:    500 * time.Millisecond,
			Cursor: CursorConfig{
				Enabled:    true,
				Steps:      10,
				JitterPx:   1.0,
				StepDelay:  8 * time.Millisecond,
				HoverDelay: 100 * time.Millisecond,
				PressDelay: 70 * time.Millisecond,
			},
		},
		LLM: LLMConfig{
			Provider:      "gemini",
			FastModel:     "gemini-2.0-flash",
			PowerfulModel: "gemini-2.5-pro",
			Timeout:       20 * time.Second,
			MaxRetries:    3,
		},
		Guardrails: GuardrailsConfig{
			RiskyRoles: []string{"delete", "remove", "confirm", "pay", "purchase", "submit order"},
		},
		Memory: MemoryConfig{
			Backend:  "ring",
			RingSize: 50,
		},
		Controller: ControllerConfig{
			MaxSteps:       50,
			MaxAutoScrolls: 5,
			ResetStepCount: false,
		},
	}
}

// Load reads config.yaml (or the path set via SetConfigFile), layers the
// PILOT_-prefixed environment, and merges the result onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("PILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
