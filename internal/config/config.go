package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL         = "https://api.scaleway.com"
	DefaultZone           = "fr-par-1"
	DefaultRegion         = "fr-par"
	DefaultRequestTimeout = 30 * time.Second
	DefaultReadyTimeout   = 10 * time.Minute
	DefaultFailureTimeout = 5 * time.Minute
	DefaultPollInterval   = 5 * time.Second
)

type Config struct {
	Scaleway      ScalewayConfig      `mapstructure:"scaleway"`
	Readiness     ReadinessConfig     `mapstructure:"readiness"`
	Log           LogConfig           `mapstructure:"log"`
	Report        ReportConfig        `mapstructure:"report"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ScalewayConfig struct {
	AccessKey      string        `mapstructure:"access_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	ProjectID      string        `mapstructure:"project_id"`
	Zone           string        `mapstructure:"zone"`
	Region         string        `mapstructure:"region"`
	APIURL         string        `mapstructure:"api_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ReadinessConfig bounds the wait between consecutive create calls on one resource.
type ReadinessConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	FailureTimeout time.Duration `mapstructure:"failure_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReportConfig enables uploading run reports to S3-compatible object storage.
// Uploads are disabled when Bucket is empty.
type ReportConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Prefix        string `mapstructure:"prefix"`
	RetentionDays int    `mapstructure:"retention_days"`
	Upload        bool   `mapstructure:"upload"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type NotificationsConfig struct {
	Discord DiscordConfig `mapstructure:"discord"`
}

type DiscordConfig struct {
	WebhookURL     string          `mapstructure:"webhook_url"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Events         []string        `mapstructure:"events"`
	Retry          DiscordRetry    `mapstructure:"retry"`
	Mentions       DiscordMentions `mapstructure:"mentions"`
}

type DiscordRetry struct {
	Attempts  int `mapstructure:"attempts"`
	BackoffMs int `mapstructure:"backoff_ms"`
}

type DiscordMentions struct {
	OnError string `mapstructure:"on_error"`
}

// RetentionConfig is the per-run retention policy taken from command flags.
type RetentionConfig struct {
	MaxCount   int
	MaxAgeDays int
	ExpiryDays int
}

func Unmarshal(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DiscordEnabled reports whether a webhook is configured.
func DiscordEnabled(n NotificationsConfig) bool {
	return n.Discord.WebhookURL != ""
}

// ReportEndpoint returns the configured object storage endpoint, or the
// Scaleway Object Storage endpoint for region.
func ReportEndpoint(cfg *Config) string {
	if cfg.Report.Endpoint != "" {
		return cfg.Report.Endpoint
	}
	region := cfg.Scaleway.Region
	if region == "" {
		region = DefaultRegion
	}
	return "https://s3." + region + ".scw.cloud"
}

// ReportCredentials returns the object storage key pair, falling back to the
// Scaleway API keys.
func ReportCredentials(cfg *Config) (accessKey, secretKey string) {
	if cfg.Report.AccessKey != "" && cfg.Report.SecretKey != "" {
		return cfg.Report.AccessKey, cfg.Report.SecretKey
	}
	return cfg.Scaleway.AccessKey, cfg.Scaleway.SecretKey
}
