package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that supply them.
// Scaleway credentials keep the names the Scaleway CLI and SDKs use.
var envBindings = map[string][]string{
	"scaleway.access_key":               {"SCW_ACCESS_KEY"},
	"scaleway.secret_key":               {"SCW_SECRET_KEY"},
	"scaleway.project_id":               {"SCW_PROJECT_ID", "SCW_DEFAULT_PROJECT_ID"},
	"scaleway.zone":                     {"SCW_ZONE", "SCW_DEFAULT_ZONE"},
	"scaleway.region":                   {"SCW_REGION", "SCW_DEFAULT_REGION"},
	"scaleway.api_url":                  {"SCW_API_URL"},
	"scaleway.request_timeout":          {"SNAPKEEPER_REQUEST_TIMEOUT"},
	"readiness.timeout":                 {"SNAPKEEPER_READY_TIMEOUT"},
	"readiness.failure_timeout":         {"SNAPKEEPER_READY_FAILURE_TIMEOUT"},
	"readiness.poll_interval":           {"SNAPKEEPER_READY_POLL_INTERVAL"},
	"log.level":                         {"SNAPKEEPER_LOG_LEVEL"},
	"log.format":                        {"SNAPKEEPER_LOG_FORMAT"},
	"report.bucket":                     {"SNAPKEEPER_REPORT_BUCKET"},
	"report.endpoint":                   {"SNAPKEEPER_REPORT_ENDPOINT"},
	"report.prefix":                     {"SNAPKEEPER_REPORT_PREFIX"},
	"report.access_key":                 {"SNAPKEEPER_REPORT_ACCESS_KEY"},
	"report.secret_key":                 {"SNAPKEEPER_REPORT_SECRET_KEY"},
	"report.retention_days":             {"SNAPKEEPER_REPORT_RETENTION_DAYS"},
	"report.upload":                     {"SNAPKEEPER_REPORT_UPLOAD"},
	"metrics.textfile":                  {"SNAPKEEPER_METRICS_TEXTFILE"},
	"notifications.discord.webhook_url": {"SNAPKEEPER_DISCORD_WEBHOOK_URL"},
	"notifications.discord.events":      {"SNAPKEEPER_DISCORD_EVENTS"},
}

// Load builds a viper instance from defaults and the environment. There is no
// config file: every setting comes from the environment or command flags.
func Load() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return v, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("scaleway.zone", DefaultZone)
	v.SetDefault("scaleway.region", DefaultRegion)
	v.SetDefault("scaleway.api_url", DefaultAPIURL)
	v.SetDefault("scaleway.request_timeout", DefaultRequestTimeout)
	v.SetDefault("readiness.timeout", DefaultReadyTimeout)
	v.SetDefault("readiness.failure_timeout", DefaultFailureTimeout)
	v.SetDefault("readiness.poll_interval", DefaultPollInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("report.retention_days", 30)
	v.SetDefault("notifications.discord.timeout_seconds", 10)
	v.SetDefault("notifications.discord.retry.attempts", 3)
	v.SetDefault("notifications.discord.retry.backoff_ms", 1000)
}
