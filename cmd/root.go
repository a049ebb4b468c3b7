package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"SnapKeeper/internal/engine"
)

var (
	dryRun       bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "snapkeeper",
	Short: "Scheduled snapshots and backups for Scaleway volumes and managed databases",
	Long: "Snapkeeper creates timestamped snapshots of Scaleway instance volumes and backups of managed " +
		"database instances, waits for each to settle, and prunes old ones by count and age.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&dryRun, "dry-run", false, "Log what would be created or deleted without changing anything")
	pf.StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json or yaml")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("metrics-textfile", "", "Write run metrics to this Prometheus textfile")
	pf.Bool("upload-report", false, "Upload the run report to object storage")
}

// flagBindings maps config keys to the persistent flags that override them.
var flagBindings = map[string]string{
	"log.level":        "log-level",
	"log.format":       "log-format",
	"metrics.textfile": "metrics-textfile",
	"report.upload":    "upload-report",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, name := range flagBindings {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, engine.ErrMalformedResponse) {
			return 2
		}
		return 1
	}
	return 0
}
