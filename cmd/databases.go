package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/engine"
	"SnapKeeper/internal/engine/database"
)

var (
	dbInstances      []string
	dbDatabases      []string
	dbRetentionDays  int
	dbRetentionCount int
	dbMaxAgeDays     int
	dbIncludeSystem  bool
	dbPrune          bool
	dbCleanupCount   int
	dbCleanupMaxAge  int
)

func init() {
	rootCmd.AddCommand(databasesCmd)
	databasesCmd.AddCommand(databasesBackupCmd, databasesListCmd, databasesCleanupCmd)

	databasesCmd.PersistentFlags().StringSliceVar(&dbInstances, "instance", nil, "Database instances to act on, by exact name (default all)")

	bf := databasesBackupCmd.Flags()
	bf.StringSliceVar(&dbDatabases, "database", nil, "Only back up these databases")
	bf.IntVar(&dbRetentionDays, "retention-days", 7, "Days until each new backup expires (0 for no expiry)")
	bf.BoolVar(&dbIncludeSystem, "include-system", false, "Also back up system databases ("+strings.Join(database.SystemDatabases, ", ")+")")
	bf.BoolVar(&dbPrune, "prune", false, "Prune old backups after creating new ones")
	bf.IntVar(&dbRetentionCount, "retention-count", 3, "Backups to keep per database when pruning")
	bf.IntVar(&dbMaxAgeDays, "max-age-days", 0, "Only prune backups older than this many days")

	cf := databasesCleanupCmd.Flags()
	cf.IntVar(&dbCleanupCount, "retention-count", 3, "Backups to keep per database")
	cf.IntVar(&dbCleanupMaxAge, "max-age-days", 0, "Only delete backups older than this many days")
}

var databasesCmd = &cobra.Command{
	Use:     "databases",
	Aliases: []string{"database", "db"},
	Short:   "Backups of managed database instances",
}

var databasesBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up every user database of each instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := config.RetentionConfig{
			MaxCount:   dbRetentionCount,
			MaxAgeDays: dbMaxAgeDays,
			ExpiryDays: dbRetentionDays,
		}
		if err := config.ValidateCreate(policy); err != nil {
			return err
		}
		if dbPrune {
			if err := config.ValidateCleanup(policy); err != nil {
				return err
			}
		}
		return runDatabases(cmd, engine.RunOptions{
			Action:           engine.ActionCreate,
			Policy:           policy,
			Allow:            dbDatabases,
			IncludeReserved:  dbIncludeSystem,
			PruneAfterCreate: dbPrune,
		})
	},
}

var databasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups taken by this tool, grouped by database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDatabases(cmd, engine.RunOptions{Action: engine.ActionList})
	},
}

var databasesCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups beyond the retention policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := config.RetentionConfig{MaxCount: dbCleanupCount, MaxAgeDays: dbCleanupMaxAge}
		if err := config.ValidateCleanup(policy); err != nil {
			return err
		}
		return runDatabases(cmd, engine.RunOptions{Action: engine.ActionCleanup, Policy: policy})
	},
}

func runDatabases(cmd *cobra.Command, opts engine.RunOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return runAction(cmd, a, database.New(a.scw), dbInstances, opts)
}

