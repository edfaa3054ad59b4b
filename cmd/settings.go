// file: cmd/settings.go
// version: 1.0.0
// guid: 8a0c2e4f-6b8d-4c1e-a3f5-7b9d1f3a5c7e

package cmd

import (
	"fmt"
	"log"

	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	var reveal bool

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change stored settings",
		Long: `Settings are stored in the database and apply to every later run.
Flags and PLAYLIST_IMPORTER_* environment variables override them.`,
	}
	settingsCmd.PersistentFlags().BoolVar(&reveal, "reveal", false, "print secret values in plain text")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every setting with its current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			for _, key := range config.SettingKeys() {
				value, err := config.SettingValue(key, reveal)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			value, err := config.SettingValue(args[0], reveal)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change and store one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			key, value := args[0], args[1]
			if err := config.UpdateSetting(store, key, value); err != nil {
				return err
			}
			if err := config.SaveConfigToFile(); err != nil {
				log.Printf("[WARN] Failed to save config snapshot: %v", err)
			}

			shown, _ := config.SettingValue(key, reveal)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, shown)
			return nil
		},
	}

	settingsCmd.AddCommand(listCmd, getCmd, setCmd)
	return settingsCmd
}
