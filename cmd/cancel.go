package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/teetime-agent/internal/booking"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a booking request, including on the club site if already confirmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.engine.CancelBooking(ctx, args[0]); err != nil {
				if errors.Is(err, booking.ErrConflict) {
					return fmt.Errorf("booking %s is executing right now; wait for it to settle and cancel on the club site instead", args[0])
				}
				return err
			}
			fmt.Printf("booking %s cancelled\n", args[0])
			return nil
		},
	}
}
