package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/migrate"
	"github.com/example/teetime-agent/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if migrateUp {
				if err := migrate.Up(ctx, a.db); err != nil {
					return err
				}
			}

			a.log.Info("daemon starting",
				zap.String("course", a.cfg.CourseName),
				zap.Duration("poll", a.cfg.PollInterval),
				zap.Int("days_in_advance", a.cfg.DaysInAdvance))

			s := &scheduler.Scheduler{
				Engine:   a.engine,
				Interval: a.cfg.PollInterval,
				Log:      a.log,
			}
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info("daemon stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}
