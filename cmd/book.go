package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/timing"
)

func newBookCmd() *cobra.Command {
	var (
		phone   string
		dateStr string
		timeStr string
		players int
		window  int
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create a booking request and schedule it for the open window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			d, err := timing.ParseDate(dateStr)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			t, err := timing.ParseTimeOfDay(timeStr)
			if err != nil {
				return fmt.Errorf("--time: %w", err)
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			req, err := a.engine.CreateBooking(ctx, booking.Request{
				Phone:          phone,
				RequestedDate:  d,
				RequestedTime:  t,
				Players:        players,
				FallbackWindow: window,
			})
			if err != nil {
				return err
			}

			fmt.Printf("booking %s: %s %s for %d player(s), window opens %s\n",
				req.ID, req.RequestedDate, req.RequestedTime.Clock12(), req.Players,
				req.ScheduledAt.In(a.cfg.Location()).Format("Mon Jan 2 15:04 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "member phone number (required)")
	cmd.Flags().StringVar(&dateStr, "date", "", "tee date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&timeStr, "time", "", "tee time, e.g. 07:30 or 7:30 AM (required)")
	cmd.Flags().IntVar(&players, "players", 1, "party size, 1-4")
	cmd.Flags().IntVar(&window, "window", 30, "fallback window in minutes around the requested time")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("time")
	return cmd
}
