package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/teetime-agent/internal/session"
)

func newLoginCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login-check",
		Short: "Verify the club credentials by logging in once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			opts := a.runner.Session
			opts.Resolver = a.runner.Resolver()
			opts.Log = a.log

			sess, err := session.Start(opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Login(); err != nil {
				return err
			}
			fmt.Println("login OK")
			return nil
		},
	}
}
