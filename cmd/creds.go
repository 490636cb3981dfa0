package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/teetime-agent/internal/creds"
)

func newCredsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage the sealed club credential store",
	}
	cmd.AddCommand(newCredsSetCmd())
	return cmd
}

func newCredsSetCmd() *cobra.Command {
	var member, password string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Seal the club login into postgres (requires CREDENTIAL_KEY)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if len(a.cfg.CredentialKey) == 0 {
				return fmt.Errorf("CREDENTIAL_KEY is not set")
			}
			store, err := creds.NewPGStore(a.db, a.cfg.CredentialKey)
			if err != nil {
				return err
			}
			if err := store.Put(ctx, creds.Credentials{Member: member, Password: password}); err != nil {
				return err
			}
			fmt.Println("credentials sealed")
			return nil
		},
	}

	cmd.Flags().StringVar(&member, "member", "", "member number (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	cmd.MarkFlagRequired("member")
	cmd.MarkFlagRequired("password")
	return cmd
}
