package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"SnapKeeper/internal/engine/database"
	"SnapKeeper/internal/engine/volume"
	"SnapKeeper/internal/schedule"
	"SnapKeeper/internal/systemd"
)

var (
	unitsPeriod    string
	unitsTimes     int
	unitsHour      int
	unitsJitter    int
	unitsBinary    string
	unitsEnvFile   string
	unitsHardening bool
	unitsWrite     bool
	unitsDir       string
)

func init() {
	rootCmd.AddCommand(systemdUnitsCmd)
	f := systemdUnitsCmd.Flags()
	f.StringVar(&unitsPeriod, "period", string(schedule.Daily), "Schedule period: day, week or month")
	f.IntVar(&unitsTimes, "times", 1, "Runs per period (1-5)")
	f.IntVar(&unitsHour, "hour", 2, "UTC hour of the first run")
	f.IntVar(&unitsJitter, "jitter-minutes", 10, "Random start delay in minutes")
	f.StringVar(&unitsBinary, "binary", systemd.DefaultBinary, "Path to the snapkeeper binary")
	f.StringVar(&unitsEnvFile, "env-file", systemd.DefaultEnvFile, "EnvironmentFile with credentials and settings")
	f.BoolVar(&unitsHardening, "hardening", true, "Add sandboxing directives to the service")
	f.BoolVar(&unitsWrite, "write", false, "Write the units into --unit-dir instead of printing them")
	f.StringVar(&unitsDir, "unit-dir", systemd.DefaultUnitDir, "Directory for systemd unit files")
}

var systemdUnitsCmd = &cobra.Command{
	Use:   "systemd-units DOMAIN [-- BACKUP FLAGS]",
	Short: "Generate a systemd service and timer that run a backup on a schedule",
	Long: "Generate a oneshot service running 'snapkeeper DOMAIN backup' and a timer for it. " +
		"Arguments after -- are passed to the backup command. Units are printed unless --write is set.",
	Args: cobra.MinimumNArgs(1),
	RunE: runSystemdUnits,
}

func runSystemdUnits(cmd *cobra.Command, args []string) error {
	domain := args[0]
	if domain != volume.Domain && domain != database.Domain {
		return fmt.Errorf("unknown domain %q (use %s or %s)", domain, volume.Domain, database.Domain)
	}
	sched := schedule.Spec{
		Period:        schedule.Period(unitsPeriod),
		Times:         unitsTimes,
		Hour:          unitsHour,
		JitterMinutes: unitsJitter,
	}
	units, err := systemd.Generate(domain, args[1:], sched, systemd.GeneratorOptions{
		Binary:    unitsBinary,
		EnvFile:   unitsEnvFile,
		Hardening: unitsHardening,
	})
	if err != nil {
		return err
	}

	next := schedule.NextRun(sched, clock.WallClock.Now())
	if !unitsWrite {
		cmd.Printf("# %s.service\n%s\n# %s.timer\n# next run %s (%s)\n%s",
			units.Name, units.Service, units.Name, next.Format("2006-01-02 15:04 MST"), schedule.Describe(sched), units.Timer)
		return nil
	}

	for name, content := range map[string]string{
		units.Name + ".service": units.Service,
		units.Name + ".timer":   units.Timer,
	} {
		path := filepath.Join(unitsDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		cmd.Printf("Wrote %s\n", path)
	}
	cmd.Printf("Enable with: systemctl daemon-reload && systemctl enable --now %s.timer\n", units.Name)
	cmd.Printf("Next run %s (%s)\n", next.Format("2006-01-02 15:04 MST"), schedule.Describe(sched))
	return nil
}
