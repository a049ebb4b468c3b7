package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"SnapKeeper/internal/engine"
	"SnapKeeper/internal/notifier"
	"SnapKeeper/internal/report"
	"SnapKeeper/internal/s3"
)

// runAction applies opts to the named resources (all when empty) and takes
// care of the run's side effects. Only configuration errors and malformed API
// responses are returned; partial failures are reported and exit zero.
func runAction(cmd *cobra.Command, a *app, backend engine.Backend, names []string, opts engine.RunOptions) error {
	ctx := cmd.Context()
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	opts.DryRun = dryRun
	domain, action := backend.Domain(), string(opts.Action)
	notify := opts.Action != engine.ActionList && a.notifier != nil

	if notify {
		if err := a.notifier.NotifyStart(ctx, domain, action); err != nil {
			a.logger.Warn("start notification failed", "error", err)
		}
	}

	runner := engine.NewRunner(backend, a.clock, engine.WaitConfigFrom(a.cfg.Readiness), a.logger, a.metrics)
	res, runErr := runner.Run(ctx, names, opts)
	defer a.writeMetrics()

	if runErr != nil {
		a.logger.Error("run aborted", "action", action, "error", runErr)
		if notify {
			if err := a.notifier.NotifyError(ctx, domain, action, runErr); err != nil {
				a.logger.Warn("error notification failed", "error", err)
			}
		}
		return fmt.Errorf("%s %s: %w", domain, action, runErr)
	}

	rep := report.FromResult(res)
	if err := report.Render(cmd.OutOrStdout(), rep, format); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if notify {
		summary := notifier.RunSummary{
			Domain:    domain,
			Action:    action,
			DryRun:    res.DryRun,
			Succeeded: res.Tally.Succeeded,
			Total:     res.Tally.Total,
			Deleted:   res.Tally.Deleted,
			Failures:  rep.Failures(),
			Duration:  rep.Duration(),
		}
		if err := notifier.NotifyOutcome(ctx, a.notifier, summary); err != nil {
			a.logger.Warn("outcome notification failed", "error", err)
		}
	}

	if a.cfg.Report.Upload {
		a.uploadReport(ctx, rep)
	}
	return nil
}

func (a *app) writeMetrics() {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("write metrics textfile failed", "path", path, "error", err)
		return
	}
	a.logger.Debug("metrics written", "path", path)
}

// uploadReport stores rep and then prunes the domain's expired reports.
// Failures here never change the run's outcome.
func (a *app) uploadReport(ctx context.Context, rep *report.Report) {
	st, err := newReportStorage(ctx, a.cfg)
	if err != nil {
		a.logger.Warn("report storage unavailable", "error", err)
		return
	}
	if rep.DryRun {
		a.logger.Info("would upload report", "key", s3.ReportKey(rep.Domain, rep.Action, rep.StartedAt))
	} else {
		key, err := report.Upload(ctx, st, rep)
		if err != nil {
			a.logger.Warn("report upload failed", "error", err)
			return
		}
		a.logger.Info("report uploaded", "bucket", st.Bucket(), "key", key)
	}
	n, err := report.ApplyRetention(ctx, st, rep.Domain, a.cfg.Report.RetentionDays, a.clock.Now(), rep.DryRun, a.logger)
	if err != nil {
		a.logger.Warn("report retention failed", "error", err)
		return
	}
	if n > 0 {
		a.logger.Info("expired reports removed", "count", n, "dry_run", rep.DryRun)
	}
}
