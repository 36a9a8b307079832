package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent booking runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			if a.History == nil {
				return errors.New("history is not available: set history.database_url (DESKBOOK_HISTORY_DATABASE_URL)")
			}

			runs, err := a.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				mode := ""
				if r.DryRun {
					mode = " (dry run)"
				}
				fmt.Fprintf(out, "%s  %s  %s on %s%s, %d relaunches\n",
					r.StartedAt.Local().Format(time.DateTime), r.RunID, r.Building, r.DeviceID, mode, r.Relaunches)
				for _, o := range r.Outcomes {
					fmt.Fprintf(out, "    %s\n", o)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
