package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"YieldOptimizer/internal/scheduler"
	"YieldOptimizer/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var sweepOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reallocation sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app, err := o.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			log := app.Log

			tokens, err := app.Tokens()
			if err != nil {
				return err
			}

			if app.Alarms != nil {
				go app.Alarms.Run(ctx)
			}

			cooldown, _ := app.Config.ReallocationPeriod()
			var msg scheduler.Messenger
			if app.Telegram != nil {
				msg = app.Telegram
			}
			sched := scheduler.NewScheduler(ctx, app.Fund, app.Governance, msg, app.Jobs(), cooldown, log)
			if err := sched.Register(app.Config.Schedule.SweepCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if app.Telegram != nil {
				go app.Telegram.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}
			if sweepOnStart {
				go sched.RunSweepNow()
			}

			srv := server.New(server.Config{
				Addr:        app.Config.Server.Addr,
				CORSOrigins: app.Config.Server.CORSOrigins,
				Log:         log,
				Fund:        app.Fund,
				Governance:  app.Governance,
				Events:      app.Recorder,
				Tokens:      tokens,
				Venues:      app.Adapters,
			})
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
			cancel()
			log.Info().Msg("optimizer stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&sweepOnStart, "sweep-on-start", os.Getenv("RUN_ON_START") == "true", "run one sweep immediately")
	return cmd
}
