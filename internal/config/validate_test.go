package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testProjectID = "11111111-2222-3333-4444-555555555555"

func validConfig() *Config {
	return &Config{
		Scaleway: ScalewayConfig{
			AccessKey: "SCWXXXXXXXXXXXXXXXXX",
			SecretKey: "secret",
			ProjectID: testProjectID,
		},
	}
}

func TestValidate_NilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("Validate(nil) should return error")
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		mention string
	}{
		{"access key", func(c *Config) { c.Scaleway.AccessKey = "" }, "SCW_ACCESS_KEY"},
		{"secret key", func(c *Config) { c.Scaleway.SecretKey = "" }, "SCW_SECRET_KEY"},
		{"project", func(c *Config) { c.Scaleway.ProjectID = "" }, "SCW_PROJECT_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Fatalf("expected ErrMissingCredentials, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q should mention %s", err, tt.mention)
			}
		})
	}
}

func TestValidate_InvalidProjectID(t *testing.T) {
	cfg := validConfig()
	cfg.Scaleway.ProjectID = "not-a-uuid"
	if err := Validate(cfg); !errors.Is(err, ErrInvalidProjectID) {
		t.Errorf("expected ErrInvalidProjectID, got %v", err)
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Scaleway.APIURL = "https://api.example.test/"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Scaleway.Zone != DefaultZone || cfg.Scaleway.Region != DefaultRegion {
		t.Errorf("zone/region = %q/%q", cfg.Scaleway.Zone, cfg.Scaleway.Region)
	}
	if cfg.Scaleway.APIURL != "https://api.example.test" {
		t.Errorf("api url = %q, want trailing slash trimmed", cfg.Scaleway.APIURL)
	}
	if cfg.Scaleway.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("request timeout = %v", cfg.Scaleway.RequestTimeout)
	}
	if cfg.Readiness.Timeout != 10*time.Minute || cfg.Readiness.FailureTimeout != 5*time.Minute || cfg.Readiness.PollInterval != 5*time.Second {
		t.Errorf("readiness = %+v", cfg.Readiness)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Error("Validate should reject unknown log format")
	}
}

func TestValidate_NormalizesReportPrefix(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Prefix = "/reports//snapkeeper/"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate should succeed: %v", err)
	}
	if cfg.Report.Prefix != "reports/snapkeeper" {
		t.Errorf("Report.Prefix = %q, want %q", cfg.Report.Prefix, "reports/snapkeeper")
	}
}

func TestValidate_UploadWithoutBucket(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Upload = true
	if err := Validate(cfg); err == nil {
		t.Error("Validate should reject upload without bucket")
	}
}

func TestValidateCleanup(t *testing.T) {
	tests := []struct {
		name    string
		r       RetentionConfig
		wantErr bool
	}{
		{"count only", RetentionConfig{MaxCount: 3}, false},
		{"age only", RetentionConfig{MaxAgeDays: 14}, false},
		{"both", RetentionConfig{MaxCount: 3, MaxAgeDays: 14}, false},
		{"neither", RetentionConfig{}, true},
		{"negative count", RetentionConfig{MaxCount: -1, MaxAgeDays: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCleanup(tt.r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCleanup(%+v) = %v, wantErr=%v", tt.r, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestValidateCreate(t *testing.T) {
	if err := ValidateCreate(RetentionConfig{ExpiryDays: 7}); err != nil {
		t.Errorf("ValidateCreate(7): %v", err)
	}
	if err := ValidateCreate(RetentionConfig{ExpiryDays: -1}); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("ValidateCreate(-1) = %v, want ErrInvalidPolicy", err)
	}
}
