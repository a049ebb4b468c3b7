package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/doctor"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration, API access, report bucket and notifications",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		cmd.Printf("Config load: ERROR: %v\n", err)
		return err
	}

	var probes doctor.Probes
	if config.Validate(cfg) == nil {
		if scw, err := newScalewayClient(cfg); err == nil {
			probes.Scaleway = scw
		}
		if cfg.Report.Bucket != "" {
			st, err := newReportStorage(cmd.Context(), cfg)
			if err != nil {
				probes.ReportsErr = err
			} else {
				probes.Reports = st
			}
		}
	}

	results := doctor.Run(cmd.Context(), cfg, probes)
	for _, r := range results {
		status := "OK"
		if !r.OK {
			status = "ERROR"
		}
		cmd.Printf("%-16s %s: %s\n", r.Name, status, r.Detail)
	}
	if doctor.Failed(results) {
		return fmt.Errorf("one or more checks failed; see output above")
	}
	return nil
}
