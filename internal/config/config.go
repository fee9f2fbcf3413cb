package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides,
// e.g. SCREENER_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "SCREENER"

// Config holds all application configuration.
type Config struct {
	DataSource DataSource `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Universe   Universe   `yaml:"universe" envconfig:"UNIVERSE"`
	Filter     Filter     `yaml:"filter" envconfig:"FILTER"`
	Indicators Indicators `yaml:"indicators" envconfig:"INDICATORS"`
	Reference  Reference  `yaml:"reference" envconfig:"REFERENCE"`
	Telegram   Telegram   `yaml:"telegram" envconfig:"TELEGRAM"`
	Schedule   Schedule   `yaml:"schedule" envconfig:"SCHEDULE"`
	Database   Database   `yaml:"database" envconfig:"DATABASE"`
	Logging    Logging    `yaml:"logging" envconfig:"LOGGING"`
	Output     Output     `yaml:"output" envconfig:"OUTPUT"`
	Proxy      string     `yaml:"proxy" split_words:"true"`
}

type DataSource struct {
	Provider     string        `yaml:"provider" split_words:"true"` // yahoo, rest, alpaca, mock
	BaseURL      string        `yaml:"base_url" split_words:"true"`
	APIKey       string        `yaml:"api_key" split_words:"true"`
	APISecret    string        `yaml:"api_secret" split_words:"true"`
	Suffix       string        `yaml:"suffix" split_words:"true"`
	RequestDelay time.Duration `yaml:"request_delay" split_words:"true"`
	ScanDays     int           `yaml:"scan_days" split_words:"true"`
	ChartDays    int           `yaml:"chart_days" split_words:"true"`
	Timeout      time.Duration `yaml:"timeout" split_words:"true"`
}

type Universe struct {
	Source   string        `yaml:"source" split_words:"true"` // static, html
	URL      string        `yaml:"url" split_words:"true"`
	Selector string        `yaml:"selector" split_words:"true"`
	TTL      time.Duration `yaml:"ttl" split_words:"true"`
	Symbols  []string      `yaml:"symbols" split_words:"true"` // extra codes added to the list
}

type Filter struct {
	UseMA                  bool     `yaml:"use_ma" split_words:"true"`
	UseVolume              bool     `yaml:"use_volume" split_words:"true"`
	UseRSI                 bool     `yaml:"use_rsi" split_words:"true"`
	MATolerance            float64  `yaml:"ma_tolerance" split_words:"true"`
	MAMode                 string   `yaml:"ma_mode" split_words:"true"`
	VolumeRatioThreshold   float64  `yaml:"volume_ratio_threshold" split_words:"true"`
	VolumeWindow           int      `yaml:"volume_window" split_words:"true"`
	RSIThreshold           float64  `yaml:"rsi_threshold" split_words:"true"`
	RSIMode                string   `yaml:"rsi_mode" split_words:"true"`
	CeilingChangeThreshold *float64 `yaml:"ceiling_change_threshold" split_words:"true"`
	Combine                string   `yaml:"combine" split_words:"true"`
	MinBars                int      `yaml:"min_bars" split_words:"true"`
	Commentary             bool     `yaml:"commentary" split_words:"true"`
	Extras                 bool     `yaml:"extras" split_words:"true"`
}

type Indicators struct {
	RSIPeriod            int     `yaml:"rsi_period" split_words:"true"`
	MACDFast             int     `yaml:"macd_fast" split_words:"true"`
	MACDSlow             int     `yaml:"macd_slow" split_words:"true"`
	MACDSignal           int     `yaml:"macd_signal" split_words:"true"`
	BollingerWindow      int     `yaml:"bollinger_window" split_words:"true"`
	BollingerK           float64 `yaml:"bollinger_k" split_words:"true"`
	SupertrendPeriod     int     `yaml:"supertrend_period" split_words:"true"`
	SupertrendMultiplier float64 `yaml:"supertrend_multiplier" split_words:"true"`
}

type Reference struct {
	FreeFloatPath        string `yaml:"free_float_path" split_words:"true"`
	FreeFloatSheet       string `yaml:"free_float_sheet" split_words:"true"`
	FreeFloatCodeColumn  string `yaml:"free_float_code_column" split_words:"true"`
	FreeFloatValueColumn string `yaml:"free_float_value_column" split_words:"true"`
	LotsPath             string `yaml:"lots_path" split_words:"true"`
	LotsCodeColumn       string `yaml:"lots_code_column" split_words:"true"`
	LotsValueColumn      string `yaml:"lots_value_column" split_words:"true"`
	LotsDelimiter        string `yaml:"lots_delimiter" split_words:"true"`
}

type Telegram struct {
	Enabled    bool          `yaml:"enabled" split_words:"true"`
	BotToken   string        `yaml:"bot_token" split_words:"true"`
	ChatID     string        `yaml:"chat_id" split_words:"true"`
	MaxRetries int           `yaml:"max_retries" split_words:"true"`
	RetryDelay time.Duration `yaml:"retry_delay" split_words:"true"`
}

type Schedule struct {
	ScanCron string `yaml:"scan_cron" split_words:"true"`
	Timezone string `yaml:"timezone" split_words:"true"`
}

type Database struct {
	SQLitePath string `yaml:"sqlite_path" ignored:"true"` // SCREENER_DATABASE_SQLITE_PATH, see Load
}

type Logging struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

type Output struct {
	Dir    string `yaml:"dir" split_words:"true"`
	Format string `yaml:"format" split_words:"true"` // table, json, csv
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Filter.UseMA = true
	cfg.Filter.UseVolume = true
	cfg.Filter.MATolerance = 0.05
	cfg.Filter.VolumeRatioThreshold = 1.5
	cfg.Filter.RSIThreshold = 30
	cfg.Filter.Commentary = true
	cfg.applyDefaults()
	return cfg
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file yields Default(). Only SCREENER_*
// keys are read, plus the conventional HTTPS_PROXY when no proxy is set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "_DATABASE_SQLITE_PATH"); ok {
		cfg.Database.SQLitePath = v
	}
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTPS_PROXY")
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Suffix == "" {
		c.DataSource.Suffix = ".IS"
	}
	if c.DataSource.RequestDelay == 0 {
		c.DataSource.RequestDelay = 100 * time.Millisecond
	}
	if c.DataSource.ScanDays == 0 {
		c.DataSource.ScanDays = 90
	}
	if c.DataSource.ChartDays == 0 {
		c.DataSource.ChartDays = 365
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.Universe.Source == "" {
		c.Universe.Source = "static"
	}
	if c.Universe.Selector == "" {
		c.Universe.Selector = "table td:first-child"
	}
	if c.Universe.TTL == 0 {
		c.Universe.TTL = 24 * time.Hour
	}
	if c.Filter.MAMode == "" {
		c.Filter.MAMode = "all"
	}
	if c.Filter.RSIMode == "" {
		c.Filter.RSIMode = "below"
	}
	if c.Filter.Combine == "" {
		c.Filter.Combine = "and"
	}
	if c.Filter.VolumeWindow == 0 {
		c.Filter.VolumeWindow = 20
	}
	if c.Filter.MinBars == 0 {
		c.Filter.MinBars = 30
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.MACDFast == 0 {
		c.Indicators.MACDFast = 12
	}
	if c.Indicators.MACDSlow == 0 {
		c.Indicators.MACDSlow = 26
	}
	if c.Indicators.MACDSignal == 0 {
		c.Indicators.MACDSignal = 9
	}
	if c.Indicators.BollingerWindow == 0 {
		c.Indicators.BollingerWindow = 20
	}
	if c.Indicators.BollingerK == 0 {
		c.Indicators.BollingerK = 2
	}
	if c.Indicators.SupertrendPeriod == 0 {
		c.Indicators.SupertrendPeriod = 10
	}
	if c.Indicators.SupertrendMultiplier == 0 {
		c.Indicators.SupertrendMultiplier = 3
	}
	if c.Reference.FreeFloatCodeColumn == "" {
		c.Reference.FreeFloatCodeColumn = "Kod"
	}
	if c.Reference.FreeFloatValueColumn == "" {
		c.Reference.FreeFloatValueColumn = "Fiili Dolasim Orani"
	}
	if c.Reference.LotsCodeColumn == "" {
		c.Reference.LotsCodeColumn = "Kod"
	}
	if c.Reference.LotsValueColumn == "" {
		c.Reference.LotsValueColumn = "Dolasimdaki Lot"
	}
	if c.Reference.LotsDelimiter == "" {
		c.Reference.LotsDelimiter = ","
	}
	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = 3
	}
	if c.Telegram.RetryDelay == 0 {
		c.Telegram.RetryDelay = 2 * time.Second
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 18 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Europe/Istanbul"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/screener.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	if c.Output.Format == "" {
		c.Output.Format = "table"
	}
}

// Validate rejects malformed configuration before any scan starts.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and api_secret are required for the alpaca provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.RequestDelay < 0 {
		return fmt.Errorf("data_source.request_delay must not be negative")
	}
	if c.DataSource.ScanDays <= 0 || c.DataSource.ChartDays <= 0 {
		return fmt.Errorf("data_source.scan_days and chart_days must be positive")
	}
	switch c.Universe.Source {
	case "static":
	case "html":
		if c.Universe.URL == "" {
			return fmt.Errorf("universe.url is required for the html source")
		}
	default:
		return fmt.Errorf("universe.source %q is not supported", c.Universe.Source)
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required")
		}
	}
	switch strings.ToLower(c.Output.Format) {
	case "table", "json", "csv":
	default:
		return fmt.Errorf("output.format %q is not supported", c.Output.Format)
	}
	return nil
}
