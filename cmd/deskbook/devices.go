package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
	"github.com/devender15/wework-claude-mcp-integration/pkg/logging"
	"github.com/devender15/wework-claude-mcp-integration/pkg/tools"
)

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List Android devices visible to adb",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			devices, err := device.NewADB(cfg.Device, logger.Named("adb")).Devices(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tools.FormatDevices(devices))
			if cfg.Device.Serial != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "configured serial: %s\n", cfg.Device.Serial)
			}
			return nil
		},
	}
}

