package cmd

import (
	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/engine"
	"SnapKeeper/internal/engine/volume"
)

var (
	volServers       []string
	volVolumes       []string
	volRetention     int
	volMaxAgeDays    int
	volPrune         bool
	volCleanupRetain int
	volCleanupMaxAge int
)

func init() {
	rootCmd.AddCommand(volumesCmd)
	volumesCmd.AddCommand(volumesBackupCmd, volumesListCmd, volumesCleanupCmd)

	volumesCmd.PersistentFlags().StringSliceVar(&volServers, "server", volume.DefaultServers, "Servers to act on, by exact name")

	bf := volumesBackupCmd.Flags()
	bf.StringSliceVar(&volVolumes, "volume", nil, "Only snapshot these volumes (name, ID or logical key)")
	bf.IntVar(&volRetention, "retention", 3, "Snapshots to keep per volume when pruning")
	bf.IntVar(&volMaxAgeDays, "max-age-days", 0, "Only prune snapshots older than this many days")
	bf.BoolVar(&volPrune, "prune", true, "Prune old snapshots after creating new ones")

	cf := volumesCleanupCmd.Flags()
	cf.IntVar(&volCleanupRetain, "retention", 3, "Snapshots to keep per volume")
	cf.IntVar(&volCleanupMaxAge, "max-age-days", 0, "Only delete snapshots older than this many days")
}

var volumesCmd = &cobra.Command{
	Use:     "volumes",
	Aliases: []string{"volume", "vol"},
	Short:   "Snapshots of instance volumes",
}

var volumesBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot every volume of each server, then prune old snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := config.RetentionConfig{MaxCount: volRetention, MaxAgeDays: volMaxAgeDays}
		if volPrune {
			if err := config.ValidateCleanup(policy); err != nil {
				return err
			}
		}
		return runVolumes(cmd, engine.RunOptions{
			Action:           engine.ActionCreate,
			Policy:           policy,
			Allow:            volVolumes,
			PruneAfterCreate: volPrune,
		})
	},
}

var volumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots taken by this tool, grouped by volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVolumes(cmd, engine.RunOptions{Action: engine.ActionList})
	},
}

var volumesCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete snapshots beyond the retention policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := config.RetentionConfig{MaxCount: volCleanupRetain, MaxAgeDays: volCleanupMaxAge}
		if err := config.ValidateCleanup(policy); err != nil {
			return err
		}
		return runVolumes(cmd, engine.RunOptions{Action: engine.ActionCleanup, Policy: policy})
	},
}

func runVolumes(cmd *cobra.Command, opts engine.RunOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return runAction(cmd, a, volume.New(a.scw), volServers, opts)
}
