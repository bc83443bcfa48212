package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"YieldOptimizer/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		EventsPath string `yaml:"events_path"`
	} `yaml:"database"`
	Fund struct {
		MinReallocationPeriod string `yaml:"min_reallocation_period"`
		StrictProtocolChecks  bool   `yaml:"strict_protocol_checks"`
	} `yaml:"fund"`
	Governance struct {
		Authority string `yaml:"authority"`
		FeeRate   uint64 `yaml:"fee_rate"`
	} `yaml:"governance"`
	Rates     RatesConfig      `yaml:"rates"`
	Protocols []ProtocolConfig `yaml:"protocols"`
	Schedule  struct {
		SweepCron string      `yaml:"sweep_cron"`
		Jobs      []JobConfig `yaml:"jobs"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// RatesConfig selects and configures the yield rate source.
type RatesConfig struct {
	Source   string            `yaml:"source"` // "static" or "http"
	Static   map[string]uint64 `yaml:"static"`
	Default  uint64            `yaml:"default"`
	BaseURL  string            `yaml:"base_url"`
	APIKey   string            `yaml:"api_key"`
	RatePath string            `yaml:"rate_path"` // gjson path into the oracle response
	Timeout  string            `yaml:"timeout"`
}

// ProtocolConfig registers one venue adapter.
type ProtocolConfig struct {
	ID               string `yaml:"id"`
	EnforcePositions bool   `yaml:"enforce_positions"`
}

// JobConfig describes one owner swept by the scheduler.
type JobConfig struct {
	Owner      string   `yaml:"owner"`
	AssetMint  string   `yaml:"asset_mint"`
	Amount     uint64   `yaml:"amount"`
	From       string   `yaml:"from"`
	Candidates []string `yaml:"candidates"`
}

// Load reads a .env file if present, then the YAML config at path, then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

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

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("EVENTS_SQLITE_PATH"); v != "" {
		c.Database.EventsPath = v
	}
	if v := os.Getenv("GOVERNANCE_AUTHORITY"); v != "" {
		c.Governance.Authority = v
	}
	if v := os.Getenv("FEE_RATE"); v != "" {
		if rate, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Governance.FeeRate = rate
		}
	}
	if v := os.Getenv("RATES_BASE_URL"); v != "" {
		c.Rates.BaseURL = v
		c.Rates.Source = "http"
	}
	if v := os.Getenv("RATES_API_KEY"); v != "" {
		c.Rates.APIKey = v
	}
	if v := os.Getenv("CRON_SWEEP"); v != "" {
		c.Schedule.SweepCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "yield-optimizer"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if c.Fund.MinReallocationPeriod == "" {
		c.Fund.MinReallocationPeriod = model.MinReallocationPeriod.String()
	}
	if c.Rates.Source == "" {
		c.Rates.Source = "static"
	}
	if c.Rates.Default == 0 && len(c.Rates.Static) == 0 {
		c.Rates.Default = 5
	}
	if c.Rates.RatePath == "" {
		c.Rates.RatePath = "rate"
	}
	if c.Rates.Timeout == "" {
		c.Rates.Timeout = "10s"
	}
	if len(c.Protocols) == 0 {
		for _, p := range model.KnownProtocols {
			c.Protocols = append(c.Protocols, ProtocolConfig{ID: string(p)})
		}
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 */15 * * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Governance.Authority == "" {
		return fmt.Errorf("governance.authority is required")
	}
	if c.Governance.FeeRate > model.MaxFeeRateBps {
		return fmt.Errorf("governance.fee_rate must be at most %d", model.MaxFeeRateBps)
	}
	if _, err := c.ReallocationPeriod(); err != nil {
		return fmt.Errorf("fund.min_reallocation_period: %w", err)
	}
	if _, err := c.TokenTTL(); err != nil {
		return fmt.Errorf("auth.token_ttl: %w", err)
	}
	switch c.Rates.Source {
	case "static":
	case "http":
		if c.Rates.BaseURL == "" {
			return fmt.Errorf("rates.base_url is required for http source")
		}
		if _, err := time.ParseDuration(c.Rates.Timeout); err != nil {
			return fmt.Errorf("rates.timeout: %w", err)
		}
	default:
		return fmt.Errorf("rates.source must be 'static' or 'http'")
	}
	seen := map[string]bool{}
	for _, p := range c.Protocols {
		id := string(model.ParseProtocol(p.ID))
		if id == "" {
			return fmt.Errorf("protocols: empty id")
		}
		if seen[id] {
			return fmt.Errorf("protocols: duplicate id %q", id)
		}
		seen[id] = true
	}
	for i, j := range c.Schedule.Jobs {
		if j.Owner == "" {
			return fmt.Errorf("schedule.jobs[%d].owner is required", i)
		}
		if j.AssetMint == "" {
			return fmt.Errorf("schedule.jobs[%d].asset_mint is required", i)
		}
		if len(j.Candidates) == 0 {
			return fmt.Errorf("schedule.jobs[%d].candidates must not be empty", i)
		}
		for _, cand := range j.Candidates {
			if !seen[string(model.ParseProtocol(cand))] {
				return fmt.Errorf("schedule.jobs[%d]: unknown protocol %q", i, cand)
			}
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// ReallocationPeriod parses fund.min_reallocation_period.
func (c *Config) ReallocationPeriod() (time.Duration, error) {
	d, err := time.ParseDuration(c.Fund.MinReallocationPeriod)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// TokenTTL parses auth.token_ttl.
func (c *Config) TokenTTL() (time.Duration, error) {
	return time.ParseDuration(c.Auth.TokenTTL)
}

// RatesTimeout parses rates.timeout.
func (c *Config) RatesTimeout() time.Duration {
	d, err := time.ParseDuration(c.Rates.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// StaticRates returns rates.static keyed by normalized protocol id.
func (c *Config) StaticRates() map[model.ProtocolID]uint64 {
	out := make(map[model.ProtocolID]uint64, len(c.Rates.Static))
	for k, v := range c.Rates.Static {
		out[model.ParseProtocol(k)] = v
	}
	return out
}

// TelegramEnabled reports whether operator alarms should be sent.
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.Telegram.BotToken) != ""
}
