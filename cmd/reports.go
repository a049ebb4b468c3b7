package cmd

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/engine/database"
	"SnapKeeper/internal/engine/volume"
	"SnapKeeper/internal/logging"
	"SnapKeeper/internal/report"
	"SnapKeeper/internal/s3"
)

var reportDomains []string

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsPruneCmd)
	reportsCmd.PersistentFlags().StringSliceVar(&reportDomains, "domain", []string{volume.Domain, database.Domain}, "Report domains to act on")
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Run reports kept in object storage",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored run reports, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := reportStorage(cmd)
		if err != nil {
			return err
		}
		table := uitable.New()
		table.AddRow("DOMAIN", "ACTION", "TIME", "KEY")
		for _, domain := range reportDomains {
			stored, err := report.ListStored(cmd.Context(), st, domain)
			if err != nil {
				return err
			}
			for _, s := range stored {
				table.AddRow(s.Domain, s.Action, s.At.Format("2006-01-02 15:04:05"), s.Key)
			}
		}
		cmd.Printf("Bucket %s at %s\n", cfg.Report.Bucket, config.ReportEndpoint(cfg))
		cmd.Println(table)
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Print one stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		_, st, err := reportStorage(cmd)
		if err != nil {
			return err
		}
		rep, err := report.Fetch(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), rep, format)
	},
}

var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete reports older than the report retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := reportStorage(cmd)
		if err != nil {
			return err
		}
		if cfg.Report.RetentionDays <= 0 {
			return fmt.Errorf("report retention is disabled (SNAPKEEPER_REPORT_RETENTION_DAYS)")
		}
		logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
		total := 0
		for _, domain := range reportDomains {
			n, err := report.ApplyRetention(cmd.Context(), st, domain, cfg.Report.RetentionDays, clock.WallClock.Now(), dryRun, logger)
			if err != nil {
				return err
			}
			total += n
		}
		verb := "Deleted"
		if dryRun {
			verb = "Would delete"
		}
		cmd.Printf("%s %d expired reports.\n", verb, total)
		return nil
	},
}

func reportStorage(cmd *cobra.Command) (*config.Config, *s3.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	if cfg.Report.Bucket == "" {
		return nil, nil, fmt.Errorf("no report bucket configured (set SNAPKEEPER_REPORT_BUCKET)")
	}
	st, err := newReportStorage(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}
