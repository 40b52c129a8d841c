package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/dashboard"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interactive dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		srv, refresher, err := buildServer(cfg)
		if err != nil {
			return err
		}
		if refresher != nil {
			go refresher.Run(ctx)
		}
		return runServer(ctx, srv)
	},
}

// buildServer wires the pipeline into the dashboard. The refresher is nil
// when no refresh schedule is configured.
func buildServer(c *config.Config) (*http.Server, *dashboard.Refresher, error) {
	p, err := initPipeline(c, "serve")
	if err != nil {
		return nil, nil, err
	}
	refresher, err := dashboard.NewRefresher(p, c.Server.RefreshSchedule)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Server.Port),
		Handler:           dashboard.New(p, c).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, refresher, nil
}

// runServer serves until ctx is canceled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
