package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harunaga/adpilot/internal/httpapi"
	"github.com/harunaga/adpilot/internal/orchestrator"
	"github.com/harunaga/adpilot/internal/scheduler"
)

func newServeCmd(configPath *string) *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control surface",
		Long: `Serve the cron, lifecycle, backtest and admin routes plus /metrics and
the websocket execution feed. --with-scheduler embeds the cron loop so no
external scheduler is needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			handlers := httpapi.NewHandlers(a.orc, a.warehouse.Sink(), a.hub, a.log)
			srv := httpapi.NewServer(a.cfg.Server, handlers, a.promReg, a.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if withScheduler {
				sched, err := scheduler.New(a.cfg.Scheduler, a.orc, orchestrator.Options{Apply: true}, a.log)
				if err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "embed the cron scheduler")
	return cmd
}
