// Package config loads the service configuration from an optional YAML file,
// a .env file and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quantDashboard/internal/analytics"
)

// Market configures ingestion and the default analysis universe.
type Market struct {
	// BaseURL pins a single Binance-compatible endpoint; empty uses the
	// public host fallback list.
	BaseURL     string   `yaml:"base_url"`
	Symbols     []string `yaml:"symbols"`
	Interval    string   `yaml:"interval"`
	Window      string   `yaml:"window"`
	RateLimit   float64  `yaml:"rate_limit"`
	Burst       int      `yaml:"burst"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	CleanIQR    bool     `yaml:"clean_iqr"`
}

// Analytics holds the explicit analysis parameters.
type Analytics struct {
	InitialCapital float64 `yaml:"initial_capital"`
	RiskFreeRate   float64 `yaml:"risk_free_rate"`
	DaysPerYear    float64 `yaml:"days_per_year"`
	ShortWindow    int     `yaml:"short_window"`
	LongWindow     int     `yaml:"long_window"`
}

// Report configures the daily CSV job.
type Report struct {
	Dir      string `yaml:"dir"`
	Interval string `yaml:"interval"`
}

// Cache configures chart caching. RedisURL empty means in-process memory.
type Cache struct {
	RedisURL string `yaml:"redis_url"`
	TTLSecs  int    `yaml:"ttl_secs"`
	Prefix   string `yaml:"prefix"`
}

type Config struct {
	TelegramToken    string    `yaml:"telegram_token"`
	WebhookPublicURL string    `yaml:"webhook_public_url"`
	OpenAIKey        string    `yaml:"openai_key"`
	Port             string    `yaml:"port"`
	DBPath           string    `yaml:"db_path"`
	LogLevel         string    `yaml:"log_level"`
	Market           Market    `yaml:"market"`
	Analytics        Analytics `yaml:"analytics"`
	Report           Report    `yaml:"report"`
	Cache            Cache     `yaml:"cache"`
}

// DefaultSymbols is the dashboard's default universe.
var DefaultSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT"}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:     "9095",
		DBPath:   "/app/data/quant.db",
		LogLevel: "info",
		Market: Market{
			Symbols:     append([]string(nil), DefaultSymbols...),
			Interval:    "1h",
			Window:      "30d",
			RateLimit:   10,
			Burst:       5,
			TimeoutSecs: 10,
		},
		Analytics: Analytics{
			InitialCapital: 1,
			DaysPerYear:    analytics.DefaultDaysPerYear,
			ShortWindow:    20,
			LongWindow:     50,
		},
		Report: Report{Dir: "reports", Interval: "1h"},
		Cache:  Cache{TTLSecs: 600, Prefix: "quant:"},
	}
}

// Load merges defaults, the YAML file at path (skipped when empty), a .env
// file in the working directory and the process environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.TelegramToken,
		"WEBHOOK_PUBLIC_URL": &c.WebhookPublicURL,
		"OPENAI_API_KEY":     &c.OpenAIKey,
		"PORT":               &c.Port,
		"DB_PATH":            &c.DBPath,
		"LOG_LEVEL":          &c.LogLevel,
		"REDIS_URL":          &c.Cache.RedisURL,
		"BINANCE_BASE_URL":   &c.Market.BaseURL,
		"MARKET_INTERVAL":    &c.Market.Interval,
		"REPORT_DIR":         &c.Report.Dir,
	}
	for k, dst := range str {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("MARKET_SYMBOLS"); v != "" {
		c.Market.Symbols = SplitSymbols(v)
	}
	if v := os.Getenv("DAYS_PER_YEAR"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DAYS_PER_YEAR: %w", err)
		}
		c.Analytics.DaysPerYear = d
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RISK_FREE_RATE: %w", err)
		}
		c.Analytics.RiskFreeRate = r
	}
	return nil
}

// SplitSymbols parses "btcusdt, ETHUSDT" into upper-case symbols.
func SplitSymbols(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, strings.ToUpper(f))
	}
	return out
}

// ValidateBot reports missing credentials the Telegram service needs.
func (c *Config) ValidateBot() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookPublicURL == "" {
		missing = append(missing, "WEBHOOK_PUBLIC_URL")
	}
	if len(missing) > 0 {
		return errors.New("missing env " + strings.Join(missing, ", "))
	}
	return nil
}

// AnalyticsOptions builds analysis options for data sampled at interval.
func (c *Config) AnalyticsOptions(interval string) (analytics.Options, error) {
	d, err := analytics.ParseInterval(interval)
	if err != nil {
		return analytics.Options{}, err
	}
	ppy, err := analytics.PeriodsPerYear(d, c.Analytics.DaysPerYear)
	if err != nil {
		return analytics.Options{}, err
	}
	opts := analytics.Options{
		InitialCapital: c.Analytics.InitialCapital,
		RiskFreeRate:   c.Analytics.RiskFreeRate,
		PeriodsPerYear: ppy,
	}
	return opts, opts.Validate()
}
