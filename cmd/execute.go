package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/teetime-agent/internal/timing"
)

func newExecuteCmd() *cobra.Command {
	var asOfStr string

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run one execution pass over due bookings and print the JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			asOf := time.Now()
			if asOfStr != "" {
				// An explicit --as-of treats everything scheduled up to
				// 23:59 club time on that date as due; used to fire a
				// window early by hand.
				d, err := timing.ParseDate(asOfStr)
				if err != nil {
					return err
				}
				asOf = timing.Instant(d, timing.TimeOfDay{Hour: 23, Minute: 59}, a.cfg.Location())
			}

			report, err := a.engine.ExecuteDueBookings(ctx, asOf)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&asOfStr, "as-of", "", "treat bookings scheduled through this date (YYYY-MM-DD) as due")
	return cmd
}
