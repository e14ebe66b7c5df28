package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/circuitry/internal/cli"
	"github.com/aretw0/circuitry/internal/presentation/tui"
	httpAdapter "github.com/aretw0/circuitry/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [FILE]",
	Short: "Start the HTTP editor API",
	Long: `Serves the workbench as a JSON API with an SSE stream of graph diffs and
Prometheus metrics at /metrics. FILE, if given, is loaded first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")

		var file string
		if len(args) > 0 {
			file = args[0]
		}
		env, err := cli.Setup(cmd.Context(), setupOptions(cmd, file), logger)
		if err != nil {
			return err
		}
		defer env.Close()

		api := httpAdapter.New(env.Bench,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithSnapshotStore(env.Snapshots),
			httpAdapter.WithLocker(env.Locker),
			httpAdapter.WithMetricsHandler(env.Metrics.Handler()),
		)
		defer api.Close()

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           api,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if isTTY(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout())
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting circuitry server", "addr", srv.Addr, "file", file)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-ctx.Done():
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion. SSE streams end with their requests.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			logger.Info("server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
