package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devender15/wework-claude-mcp-integration/pkg/tools"
)

func bookCmd() *cobra.Command {
	var (
		building string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "book DATE...",
		Short: "Book desks for one or more dates (YYYY-MM-DD)",
		Long: `Book desks for one or more dates at a building. Sundays are skipped.

Examples:
  deskbook book 2026-02-11 2026-02-12 --building "Two Horizon Center"
  deskbook book 2026-02-11 --building "Horizon" --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, logger, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			dateArgs := make([]interface{}, len(args))
			for i, d := range args {
				dateArgs[i] = d
			}

			tool := tools.NewBookDesksTool(a.Runner, logger.Named("tool"))
			result, err := tool.Execute(ctx, map[string]interface{}{
				"dates":    dateArgs,
				"building": building,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else if result.Success {
				fmt.Fprintln(out, result.Output)
			}

			if !result.Success {
				return errors.New(result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&building, "building", "b", "", "Building name as shown in the app (substring match)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.MarkFlagRequired("building")
	return cmd
}
