package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Overlap policies for scheduled refresh cycles.
const (
	OverlapSkip  = "skip"
	OverlapAllow = "allow"
)

// Theme source kinds.
const (
	ThemeSourceFile  = "file"
	ThemeSourceBBolt = "bbolt"
	ThemeSourceSQL   = "sql"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`

	NewsAPIKey         string `mapstructure:"newsapi_key"`
	NewsAPIBaseURL     string `mapstructure:"newsapi_base_url"`
	NewsAPICountry     string `mapstructure:"newsapi_country"`
	NewsAPICategory    string `mapstructure:"newsapi_category"`
	NewsAPILanguage    string `mapstructure:"newsapi_language"`
	NewsAPISortBy      string `mapstructure:"newsapi_sort_by"`
	HTTPTimeoutSeconds int64  `mapstructure:"http_timeout_seconds"`
	HTTPRetryCount     int    `mapstructure:"http_retry_count"`

	RefreshIntervalSeconds int64         `mapstructure:"refresh_interval"`
	RefreshInterval        time.Duration `mapstructure:"-"`
	HeadlineCount          int           `mapstructure:"headline_count"`
	ThemeBudget            int           `mapstructure:"theme_budget"`
	MaxInFlightFetches     int           `mapstructure:"max_inflight_fetches"`
	FetchTimeoutSeconds    int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout           time.Duration `mapstructure:"-"`
	HTTPTimeout            time.Duration `mapstructure:"-"`
	OverlapPolicy          string        `mapstructure:"overlap_policy"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	BreakerEnabled bool    `mapstructure:"breaker_enabled"`
	EnrichImages   bool    `mapstructure:"enrich_images"`

	ThemeSource     string `mapstructure:"theme_source"`
	ThemesFile      string `mapstructure:"themes_file"`
	ThemesBBoltPath string `mapstructure:"themes_bbolt_path"`
	ThemesSQLDriver string `mapstructure:"themes_sql_driver"`
	ThemesSQLDSN    string `mapstructure:"themes_sql_dsn"`

	ReportsFile string `mapstructure:"reports_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-news-snapshot")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("newsapi_key", "")
	v.SetDefault("newsapi_base_url", "https://newsapi.org")
	v.SetDefault("newsapi_country", "jp")
	v.SetDefault("newsapi_category", "general")
	v.SetDefault("newsapi_language", "jp")
	v.SetDefault("newsapi_sort_by", "relevancy")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("http_retry_count", 0)

	v.SetDefault("refresh_interval", int64((8*time.Hour)/time.Second)) // seconds
	v.SetDefault("headline_count", 15)
	v.SetDefault("theme_budget", 6)
	v.SetDefault("max_inflight_fetches", 0)
	v.SetDefault("fetch_timeout_seconds", 30)
	v.SetDefault("overlap_policy", OverlapSkip)

	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("rate_limit_burst", 1)
	v.SetDefault("breaker_enabled", false)
	v.SetDefault("enrich_images", false)

	v.SetDefault("theme_source", ThemeSourceFile)
	v.SetDefault("themes_file", "./configs/themes.yaml")
	v.SetDefault("themes_bbolt_path", "./data/themes.db")
	v.SetDefault("themes_sql_driver", "postgres")
	v.SetDefault("themes_sql_dsn", "")

	v.SetDefault("reports_file", "")
}

// normalize validates the decoded values and derives durations.
func (c *Config) normalize() error {
	if c.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("invalid refresh_interval (must be positive seconds)")
	}
	c.RefreshInterval = time.Duration(c.RefreshIntervalSeconds) * time.Second

	if c.HeadlineCount <= 0 {
		return fmt.Errorf("invalid headline_count (must be positive)")
	}
	if c.ThemeBudget <= 0 {
		return fmt.Errorf("invalid theme_budget (must be positive)")
	}
	if c.MaxInFlightFetches < 0 {
		return fmt.Errorf("invalid max_inflight_fetches (must be >= 0)")
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be >= 0)")
	}
	c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second
	if c.HTTPRetryCount < 0 {
		return fmt.Errorf("invalid http_retry_count (must be >= 0)")
	}

	c.OverlapPolicy = strings.ToLower(strings.TrimSpace(c.OverlapPolicy))
	switch c.OverlapPolicy {
	case OverlapSkip, OverlapAllow:
	default:
		return fmt.Errorf("invalid overlap_policy %q (expected %q or %q)", c.OverlapPolicy, OverlapSkip, OverlapAllow)
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("invalid rate_limit_rps (must be >= 0)")
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}

	c.ThemeSource = strings.ToLower(strings.TrimSpace(c.ThemeSource))
	switch c.ThemeSource {
	case ThemeSourceFile, ThemeSourceBBolt, ThemeSourceSQL:
	default:
		return fmt.Errorf("unsupported theme_source %q", c.ThemeSource)
	}
	if c.ThemeSource == ThemeSourceSQL && strings.TrimSpace(c.ThemesSQLDSN) == "" {
		return fmt.Errorf("themes_sql_dsn is required when theme_source is %q", ThemeSourceSQL)
	}

	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.NewsAPIKey != "" {
		c.NewsAPIKey = "***"
	}
	if c.ThemesSQLDSN != "" {
		c.ThemesSQLDSN = "***"
	}
	return c
}
