package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "teetimed",
		Short: "Tee-time agent that books club tee times the moment the reservation window opens",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newBookingsCmd())
	root.AddCommand(newCancelCmd())
	root.AddCommand(newExecuteCmd())
	root.AddCommand(newLoginCheckCmd())
	root.AddCommand(newCredsCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
