package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devender15/wework-claude-mcp-integration/pkg/preflight"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check adb, the Appium server and the device before booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			results, err := a.Checker().CheckAll(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), preflight.Format(results))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ All dependencies OK")
			return nil
		},
	}
}
