package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheetgenie/internal/di"
	"sheetgenie/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, flags, map[string]string{
				"server.host":  "host",
				"server.port":  "port",
				"server.debug": "debug",
			})
			if err != nil {
				return err
			}
			if !cfg.Server.Debug {
				gin.SetMode(gin.ReleaseMode)
			}
			container, err := di.BuildContainer(cfg)
			if err != nil {
				return err
			}
			logger := container.Logger

			srv := server.New(cfg.Server, server.Deps{
				Shell:    container.Shell,
				Sessions: container.Sessions,
				Chat:     container.Chat,
				Metrics:  container.Metrics,
				Tracer:   container.Tracer,
				Version:  version,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var serveErr error
			select {
			case serveErr = <-errCh:
			case <-ctx.Done():
				logger.Info("Shutting down server...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Join(serveErr, srv.Shutdown(shutdownCtx), container.Cleanup(shutdownCtx))
		},
	}
	cmd.Flags().String("host", "", "Listen host")
	cmd.Flags().Int("port", 0, "Listen port")
	cmd.Flags().Bool("debug", false, "Debug mode")
	return cmd
}
