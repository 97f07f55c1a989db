package cli

import (
	"github.com/spf13/cobra"

	"grider-status-alerts/internal/app"
)

var (
	setTemplate       string
	setCustomMessage  string
	setSendOnChange   bool
	setSendOnSchedule bool
	setSendOnAlert    bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or update notification settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted notification settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SettingsShow(cmd.Context())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update notification settings and save",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SettingsSetOptions{}
		flags := cmd.Flags()

		if flags.Changed("template") {
			opts.Template = &setTemplate
		}
		if flags.Changed("custom-message") {
			opts.CustomMessage = &setCustomMessage
		}
		if flags.Changed("on-change") {
			opts.SendOnChange = &setSendOnChange
		}
		if flags.Changed("on-schedule") {
			opts.SendOnSchedule = &setSendOnSchedule
		}
		if flags.Changed("on-alert") {
			opts.SendOnAlert = &setSendOnAlert
		}

		return getApp().SettingsSet(cmd.Context(), opts)
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&setTemplate, "template", "", "Template identifier (standard|detailed|simple|custom)")
	settingsSetCmd.Flags().StringVar(&setCustomMessage, "custom-message", "", "Custom template body as JSON {title, content, footer}")
	settingsSetCmd.Flags().BoolVar(&setSendOnChange, "on-change", false, "Send a message when the snapshot changes")
	settingsSetCmd.Flags().BoolVar(&setSendOnSchedule, "on-schedule", false, "Send a message on the dispatch schedule")
	settingsSetCmd.Flags().BoolVar(&setSendOnAlert, "on-alert", false, "Send a message when collection fails")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
