package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrEmptySourcesFile = errors.New(
		"error getting TRACKER_SOURCES_FILE: variable not specified or contains an empty string")
	ErrNoSources      = errors.New("sources file defines no sources")
	ErrInvalidAdapter = errors.New("invalid adapter kind")
)

type Config struct {
	Env         string // Env is the current environment: local, dev, prod.
	HTTPAddr    string // HTTPAddr is the listen address of the API server.
	StoragePath string // StoragePath is the sqlite database file.
	SourcesFile string // SourcesFile is the YAML file describing the sources.

	AlertInterval time.Duration // AlertInterval is the period between alert passes.

	Tg   Telegram
	Poll Poll
}

type Telegram struct {
	Token  string // Token is a unique telegram bot token. Empty disables alerts delivery.
	ChatID int64  // ChatID is the destination chat for alerts.
}

// Poll bundles the scheduler knobs shared by all sources.
type Poll struct {
	DefaultInterval time.Duration
	RetryDelay      time.Duration
	FetchTimeout    time.Duration
	MaxAttempts     int
}

// SourceSpec describes one marketplace entry of the sources file.
type SourceSpec struct {
	ID          string        `mapstructure:"id"`
	DisplayName string        `mapstructure:"displayName"`
	Kind        string        `mapstructure:"kind"` // "html" or "json"
	URL         string        `mapstructure:"url"`
	Selector    string        `mapstructure:"selector"` // html row selector, optional
	Interval    time.Duration `mapstructure:"interval"` // zero means the poll default
	Commission  int           `mapstructure:"commission"`
}

// MustLoad loads the configuration from environment variables and returns a Config struct.
func MustLoad() *Config {
	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("TRACKER")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("STORAGE_PATH", "tracker.db")
	viper.SetDefault("ALERT_INTERVAL", "1m")
	viper.SetDefault("POLL_INTERVAL", "5m")
	viper.SetDefault("POLL_RETRY_DELAY", "5s")
	viper.SetDefault("POLL_FETCH_TIMEOUT", "30s")
	viper.SetDefault("POLL_MAX_ATTEMPTS", 3)

	if viper.GetString("SOURCES_FILE") == "" {
		panic(ErrEmptySourcesFile)
	}

	return &Config{
		Env:           viper.GetString("ENV"),
		HTTPAddr:      viper.GetString("HTTP_ADDR"),
		StoragePath:   viper.GetString("STORAGE_PATH"),
		SourcesFile:   viper.GetString("SOURCES_FILE"),
		AlertInterval: viper.GetDuration("ALERT_INTERVAL"),
		Tg: Telegram{
			Token:  viper.GetString("TELEGRAM_TOKEN"),
			ChatID: viper.GetInt64("TELEGRAM_CHAT_ID"),
		},
		Poll: Poll{
			DefaultInterval: viper.GetDuration("POLL_INTERVAL"),
			RetryDelay:      viper.GetDuration("POLL_RETRY_DELAY"),
			FetchTimeout:    viper.GetDuration("POLL_FETCH_TIMEOUT"),
			MaxAttempts:     viper.GetInt("POLL_MAX_ATTEMPTS"),
		},
	}
}

// LoadSources reads the YAML sources file and validates every entry.
func LoadSources(path string) ([]SourceSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read sources file %q: %w", path, err)
	}

	var specs []SourceSpec
	if err := v.UnmarshalKey("sources", &specs); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %q: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, path)
	}

	for _, spec := range specs {
		if spec.ID == "" || spec.URL == "" {
			return nil, fmt.Errorf("source %+v: id and url are required", spec)
		}
		if spec.Kind != "html" && spec.Kind != "json" {
			return nil, fmt.Errorf("%w: %q for source %q", ErrInvalidAdapter, spec.Kind, spec.ID)
		}
	}

	return specs, nil
}
