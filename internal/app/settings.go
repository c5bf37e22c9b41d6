package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mrcode/nightscout-autotune/internal/models"
	"github.com/spf13/cobra"
)

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the settings file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := json.MarshalIndent(a.settings, "", "  ")
			if err != nil {
				return err
			}
			return writeLine(a.stdout, data)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the resolved settings to the settings file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")
			return a.saveSettings(path, force)
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing settings file")

	notifyCmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test desktop notification.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.notifier.SendTestNotification(); err != nil {
				return err
			}
			a.status(okColor, "✓ test notification sent")
			return nil
		},
	}

	cmd.AddCommand(initCmd, notifyCmd)
	return cmd
}

// saveSettings writes the current settings to path, or to the default location when empty
func (a *App) saveSettings(path string, force bool) error {
	save := func() error { return a.settings.SaveTo(path) }
	if path == "" {
		p, err := models.GetConfigPath()
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		path = p
		save = a.settings.Save
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := save(); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	a.status(okColor, "✓ settings written to %s", path)
	return nil
}
