package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/notifier"
)

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification utilities",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test message to the configured Discord webhook",
	RunE:  runNotifyTest,
}

// NotifierFromConfig builds a Notifier from cfg. It returns nil when no
// webhook is configured, and also when the webhook is invalid, in which case
// warn receives the reason.
func NotifierFromConfig(cfg *config.Config, warn func(string)) notifier.Notifier {
	if cfg == nil || !config.DiscordEnabled(cfg.Notifications) {
		return nil
	}
	n, err := notifier.NewDiscordNotifier(cfg.Notifications.Discord)
	if err != nil {
		if warn != nil {
			warn("discord notification: " + err.Error())
		}
		return nil
	}
	return n
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !config.DiscordEnabled(cfg.Notifications) {
		return fmt.Errorf("no webhook configured (set SNAPKEEPER_DISCORD_WEBHOOK_URL)")
	}
	n, err := notifier.NewDiscordNotifier(cfg.Notifications.Discord)
	if err != nil {
		return err
	}
	if err := n.NotifyTest(cmd.Context()); err != nil {
		return fmt.Errorf("send test notification: %w", err)
	}
	cmd.Println("Test notification sent.")
	return nil
}
