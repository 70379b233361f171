package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "github.com/nbisweden/lega-e2e/api/v1"
	"github.com/nbisweden/lega-e2e/internal/handlers"
	"github.com/nbisweden/lega-e2e/internal/harness"
	"github.com/nbisweden/lega-e2e/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newReportCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Serve recorded attempts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a := harness.New(root.cfg)
			defer a.Close()

			results, err := a.Results(ctx)
			if err != nil {
				return err
			}

			h := handlers.New(results.Attempts(), results)
			srv, err := server.NewServer(root.cfg, func(router *gin.RouterGroup) {
				v1.RegisterHandlers(router, h)
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(ctx) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			zap.S().Named("cli").Infow("shutting down report server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
}
