package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the Gemini credential.
const APIKeyEnv = "GEMINI_API_KEY"

var ErrMissingAPIKey = errors.New(APIKeyEnv + " is not set")

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"` // 10 on the gemini-2.0-flash-exp free tier
}

type BrowserConfig struct {
	Engine      string        `mapstructure:"engine" yaml:"engine"` // chromedp or playwright
	Headless    bool          `mapstructure:"headless" yaml:"headless"`
	Width       int           `mapstructure:"width" yaml:"width"`
	Height      int           `mapstructure:"height" yaml:"height"`
	UserDataDir string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Screenshots bool          `mapstructure:"screenshots" yaml:"screenshots"`
}

type AgentConfig struct {
	StartURL    string        `mapstructure:"start_url" yaml:"start_url"`
	StepDelay   time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	MaxFailures int           `mapstructure:"max_failures" yaml:"max_failures"`
	Planning    bool          `mapstructure:"planning" yaml:"planning"`
	Summary     bool          `mapstructure:"summary" yaml:"summary"`
}

type UIConfig struct {
	ShowLogs          bool          `mapstructure:"show_logs" yaml:"show_logs"`
	DefaultMaxSteps   int           `mapstructure:"default_max_steps" yaml:"default_max_steps"`
	DefaultMaxActions int           `mapstructure:"default_max_actions" yaml:"default_max_actions"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or console
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8501")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("llm.requests_per_minute", 10)

	v.SetDefault("browser.engine", "chromedp")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.width", 1280)
	v.SetDefault("browser.height", 720)
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.timeout", time.Minute)
	v.SetDefault("browser.screenshots", true)

	v.SetDefault("agent.start_url", "https://www.google.com")
	v.SetDefault("agent.step_delay", time.Second)
	v.SetDefault("agent.max_failures", 3)
	v.SetDefault("agent.planning", false)
	v.SetDefault("agent.summary", true)

	v.SetDefault("ui.show_logs", false)
	v.SetDefault("ui.default_max_steps", 25)
	v.SetDefault("ui.default_max_actions", 4)
	v.SetDefault("ui.refresh_interval", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads defaults, an optional config file, a .env file in the working
// directory and the environment, in increasing order of precedence. An empty
// path searches for config.{yaml,json,toml} in . and ./config.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", APIKeyEnv, "PANEL_LLM_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	return &cfg, nil
}

// ResolveAPIKey looks the credential up again: .env is re-read without
// overriding variables already set, then GEMINI_API_KEY is consulted, then the
// key loaded at startup. A key added while the process runs is picked up on the
// next call.
func (c *Config) ResolveAPIKey() (string, error) {
	if err := loadDotEnv(".env"); err != nil {
		return "", err
	}
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}
	if c != nil && c.LLM.APIKey != "" {
		return c.LLM.APIKey, nil
	}
	return "", ErrMissingAPIKey
}

// WriteYAML writes the effective configuration with the credential masked.
func (c *Config) WriteYAML(w io.Writer) error {
	out := *c
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "********"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// loadDotEnv exports the variables of a dotenv file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
