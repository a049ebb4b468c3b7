package cmd

import (
	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check credentials and settings without calling any API",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	cmd.Printf("Configuration OK (project %s, zone %s, region %s)\n", cfg.Scaleway.ProjectID, cfg.Scaleway.Zone, cfg.Scaleway.Region)
	return nil
}
