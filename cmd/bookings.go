package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBookingsCmd() *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List booking requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			reqs, err := a.repo.List(ctx, phone)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTIME\tPLAYERS\tSTATUS\tBOOKED\tNOTE")
			for _, r := range reqs {
				booked, note := "-", ""
				if r.Confirmation != "" {
					booked = r.BookedTime.Clock12()
				}
				if r.LastError != "" {
					note = r.LastError
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.ID, r.RequestedDate, r.RequestedTime.Clock12(),
					r.Players, r.Status, booked, note)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "filter by member phone number")
	return cmd
}
