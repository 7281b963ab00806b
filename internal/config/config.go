package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	CatalogURL string `mapstructure:"catalog_url"`
	DetailsURL string `mapstructure:"details_url"`
	NewsURL    string `mapstructure:"news_url"`

	ClassifierRulesFile string `mapstructure:"classifier_rules_file"`
	PublishersFile      string `mapstructure:"publishers_file"`
	IndexTemplateFile   string `mapstructure:"index_template"`
	StorePath           string `mapstructure:"store_path"`
	ArtifactsDir        string `mapstructure:"artifacts_dir"`

	MaxLookupsPerRun  int `mapstructure:"max_lookups_per_run"`
	DetailBatchSize   int `mapstructure:"detail_batch_size"`
	DetailMaxInFlight int `mapstructure:"detail_max_inflight"`
	NewsChunkSize     int `mapstructure:"news_chunk_size"`
	NewsMaxInFlight   int `mapstructure:"news_max_inflight"`
	NewsPerTitle      int `mapstructure:"news_per_title"`

	FreshnessSeconds       int64         `mapstructure:"freshness_seconds"`
	RunDeadlineSeconds     int64         `mapstructure:"run_deadline_seconds"`
	HTTPTimeoutSeconds     int64         `mapstructure:"http_timeout_seconds"`
	RefreshIntervalSeconds int64         `mapstructure:"refresh_interval_seconds"`
	Freshness              time.Duration `mapstructure:"-"`
	RunDeadline            time.Duration `mapstructure:"-"`
	HTTPTimeout            time.Duration `mapstructure:"-"`
	RefreshInterval        time.Duration `mapstructure:"-"`

	RunOnce bool `mapstructure:"run_once"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "steamnews")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("catalog_url", "https://api.steampowered.com/ISteamApps/GetAppList/v0002/")
	v.SetDefault("details_url", "https://store.steampowered.com/api/appdetails/")
	v.SetDefault("news_url", "https://api.steampowered.com/ISteamNews/GetNewsForApp/v0002/")

	v.SetDefault("classifier_rules_file", "./configs/classifier.yaml")
	v.SetDefault("publishers_file", "") // empty disables downstream notifications
	v.SetDefault("index_template", "") // empty uses the embedded template
	v.SetDefault("store_path", "./data/games.db")
	v.SetDefault("artifacts_dir", "./steamnews")

	v.SetDefault("max_lookups_per_run", 200)
	v.SetDefault("detail_batch_size", 20)
	v.SetDefault("detail_max_inflight", 4)
	v.SetDefault("news_chunk_size", 50)
	v.SetDefault("news_max_inflight", 10)
	v.SetDefault("news_per_title", 3)

	v.SetDefault("freshness_seconds", int64(time.Hour/time.Second))
	v.SetDefault("run_deadline_seconds", int64((10*time.Minute)/time.Second))
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("refresh_interval_seconds", int64((15*time.Minute)/time.Second))
	v.SetDefault("run_once", false)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Freshness = time.Duration(cfg.FreshnessSeconds) * time.Second
	cfg.RunDeadline = time.Duration(cfg.RunDeadlineSeconds) * time.Second
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalSeconds) * time.Second

	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.CatalogURL == "" || cfg.DetailsURL == "" || cfg.NewsURL == "" {
		return fmt.Errorf("catalog_url, details_url and news_url must all be set")
	}
	if cfg.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if cfg.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir must not be empty")
	}
	if cfg.MaxLookupsPerRun <= 0 {
		return fmt.Errorf("invalid max_lookups_per_run (must be positive)")
	}
	if cfg.DetailBatchSize <= 0 || cfg.DetailMaxInFlight <= 0 {
		return fmt.Errorf("detail_batch_size and detail_max_inflight must be positive")
	}
	if cfg.NewsChunkSize <= 0 || cfg.NewsMaxInFlight <= 0 || cfg.NewsPerTitle <= 0 {
		return fmt.Errorf("news_chunk_size, news_max_inflight and news_per_title must be positive")
	}
	if cfg.FreshnessSeconds <= 0 {
		return fmt.Errorf("invalid freshness_seconds (must be positive seconds)")
	}
	if cfg.RunDeadlineSeconds <= 0 {
		return fmt.Errorf("invalid run_deadline_seconds (must be positive seconds)")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	if cfg.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("invalid refresh_interval_seconds (must be positive seconds)")
	}
	return nil
}
