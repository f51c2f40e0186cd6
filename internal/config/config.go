package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CANDLESYNC_DATA_SOURCE_BASE_URL.
const EnvPrefix = "CANDLESYNC"

// Indicator configures one overlay line.
type Indicator struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"` // "remote" (default) or "local"
	Kind   string `yaml:"kind"`   // ema, sma or rsi; local only
	Period int    `yaml:"period"` // local only
}

// Local reports whether the indicator is computed from local bars.
func (i Indicator) Local() bool { return strings.EqualFold(i.Source, "local") }

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL      string        `yaml:"base_url" envconfig:"BASE_URL"`
		APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
		Symbol       string        `yaml:"symbol" envconfig:"SYMBOL"`
		Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
		InitialSince string        `yaml:"initial_since" envconfig:"INITIAL_SINCE"`
		// BarDuration is used when the last-trade feed omits the duration
		// and the backend's barDuration endpoint is unavailable.
		BarDuration int64 `yaml:"bar_duration" envconfig:"BAR_DURATION"`
	} `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Schedule struct {
		PollInterval time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
		RefreshCron  string        `yaml:"refresh_cron" envconfig:"REFRESH_CRON"`
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Indicators []Indicator `yaml:"indicators" ignored:"true"`
	Telegram   struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database" envconfig:"DATABASE"`
	Metrics struct {
		Addr string `yaml:"addr" envconfig:"ADDR"`
	} `yaml:"metrics" envconfig:"METRICS"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides; unset variables keep the file values.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Symbol == "" {
		c.DataSource.Symbol = "BTCUSDT"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 10 * time.Second
	}
	if c.DataSource.InitialSince == "" {
		c.DataSource.InitialSince = "0"
	}
	if c.DataSource.BarDuration == 0 {
		c.DataSource.BarDuration = 60
	}
	if c.Schedule.PollInterval == 0 {
		c.Schedule.PollInterval = 1500 * time.Millisecond
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "*/30 * * * * *"
	}
	if c.Indicators == nil {
		c.Indicators = []Indicator{
			{Name: "short", Source: "remote"},
			{Name: "long", Source: "remote"},
		}
	}
	for i := range c.Indicators {
		if c.Indicators[i].Source == "" {
			c.Indicators[i].Source = "remote"
		}
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required")
	}
	if c.DataSource.Symbol == "" {
		return fmt.Errorf("data_source.symbol is required")
	}
	if c.DataSource.Timeout <= 0 {
		return fmt.Errorf("data_source.timeout must be positive")
	}
	if c.DataSource.BarDuration <= 0 {
		return fmt.Errorf("data_source.bar_duration must be positive")
	}
	if c.Schedule.PollInterval <= 0 {
		return fmt.Errorf("schedule.poll_interval must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	seen := make(map[string]bool, len(c.Indicators))
	for i, ind := range c.Indicators {
		if ind.Name == "" {
			return fmt.Errorf("indicators[%d].name is required", i)
		}
		if seen[ind.Name] {
			return fmt.Errorf("indicators[%d]: duplicate name %q", i, ind.Name)
		}
		seen[ind.Name] = true
		switch strings.ToLower(ind.Source) {
		case "remote":
		case "local":
			switch strings.ToLower(ind.Kind) {
			case "ema", "sma", "rsi":
			default:
				return fmt.Errorf("indicators[%d].kind must be ema, sma or rsi, got %q", i, ind.Kind)
			}
			if ind.Period <= 0 {
				return fmt.Errorf("indicators[%d].period must be positive", i)
			}
		default:
			return fmt.Errorf("indicators[%d].source must be remote or local, got %q", i, ind.Source)
		}
	}
	return nil
}
