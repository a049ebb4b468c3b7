package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingCredentials = errors.New("missing Scaleway credentials (SCW_ACCESS_KEY, SCW_SECRET_KEY, SCW_PROJECT_ID)")
	ErrInvalidProjectID   = errors.New("invalid project id: must be a UUID")
	ErrInvalidPolicy      = errors.New("invalid retention policy")
)

// Validate checks everything that must hold before any remote call is made
// and normalizes values that have a canonical form.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	scw := &cfg.Scaleway
	var missing []string
	if scw.AccessKey == "" {
		missing = append(missing, "SCW_ACCESS_KEY")
	}
	if scw.SecretKey == "" {
		missing = append(missing, "SCW_SECRET_KEY")
	}
	if scw.ProjectID == "" {
		missing = append(missing, "SCW_PROJECT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if _, err := uuid.Parse(scw.ProjectID); err != nil {
		return fmt.Errorf("%w: got %q", ErrInvalidProjectID, scw.ProjectID)
	}
	if scw.Zone == "" {
		scw.Zone = DefaultZone
	}
	if scw.Region == "" {
		scw.Region = DefaultRegion
	}
	if scw.APIURL == "" {
		scw.APIURL = DefaultAPIURL
	}
	scw.APIURL = strings.TrimSuffix(scw.APIURL, "/")
	if scw.RequestTimeout <= 0 {
		scw.RequestTimeout = DefaultRequestTimeout
	}

	r := &cfg.Readiness
	if r.Timeout <= 0 {
		r.Timeout = DefaultReadyTimeout
	}
	if r.FailureTimeout <= 0 {
		r.FailureTimeout = DefaultFailureTimeout
	}
	if r.PollInterval <= 0 {
		r.PollInterval = DefaultPollInterval
	}

	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (use text or json)", cfg.Log.Format)
	}

	cfg.Report.Prefix = NormalizePrefix(cfg.Report.Prefix)
	if cfg.Report.Upload && cfg.Report.Bucket == "" {
		return fmt.Errorf("report upload requested but SNAPKEEPER_REPORT_BUCKET is not set")
	}
	return nil
}

// ValidateCleanup checks that a cleanup policy bounds something.
func ValidateCleanup(r RetentionConfig) error {
	if r.MaxCount < 0 || r.MaxAgeDays < 0 {
		return fmt.Errorf("%w: retention values must not be negative", ErrInvalidPolicy)
	}
	if r.MaxCount == 0 && r.MaxAgeDays == 0 {
		return fmt.Errorf("%w: set a retention count or a maximum age", ErrInvalidPolicy)
	}
	return nil
}

// ValidateCreate checks the creation side of a policy.
func ValidateCreate(r RetentionConfig) error {
	if r.ExpiryDays < 0 {
		return fmt.Errorf("%w: retention days must not be negative", ErrInvalidPolicy)
	}
	return nil
}
