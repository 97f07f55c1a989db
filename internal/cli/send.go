package cli

import (
	"github.com/spf13/cobra"
)

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "렌더링된 메시지를 webhook 으로 한 번 전송",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SendTest(cmd.Context())
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the configured template without dispatching",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Preview(cmd.Context())
	},
}
