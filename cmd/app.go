package cmd

import (
	"context"
	"log/slog"

	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/logging"
	"SnapKeeper/internal/metrics"
	"SnapKeeper/internal/notifier"
	"SnapKeeper/internal/s3"
	"SnapKeeper/internal/scaleway"
)

// app holds what every remote command needs once configuration is valid.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	scw      *scaleway.Client
	notifier notifier.Notifier
	metrics  *metrics.Prom
	clock    clock.Clock
}

// loadConfig reads the environment and flags without validating.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	return config.Unmarshal(v)
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	scw, err := newScalewayClient(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		scw:      scw,
		notifier: NotifierFromConfig(cfg, func(msg string) { logger.Warn(msg) }),
		metrics:  metrics.NewProm(),
		clock:    clock.WallClock,
	}, nil
}

func newScalewayClient(cfg *config.Config) (*scaleway.Client, error) {
	return scaleway.New(scaleway.Options{
		BaseURL:   cfg.Scaleway.APIURL,
		SecretKey: cfg.Scaleway.SecretKey,
		ProjectID: cfg.Scaleway.ProjectID,
		Zone:      cfg.Scaleway.Zone,
		Region:    cfg.Scaleway.Region,
		Timeout:   cfg.Scaleway.RequestTimeout,
	})
}

func newReportStorage(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	accessKey, secretKey := config.ReportCredentials(cfg)
	return s3.New(ctx, s3.Options{
		Endpoint:  config.ReportEndpoint(cfg),
		Region:    cfg.Scaleway.Region,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    cfg.Report.Bucket,
		Prefix:    cfg.Report.Prefix,
	})
}
