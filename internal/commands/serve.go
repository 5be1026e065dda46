package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raketrapport/raket/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report and recalculation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")

	return cmd
}

func runServe(ctx context.Context, opts *globalOptions, addr string) error {
	e, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if addr == "" {
		addr = e.cfg.Server.Address
	}
	apiOpts := httpapi.Options{
		MaxBodyBytes: e.cfg.Server.MaxBodyBytes,
		Logger:       e.logger,
	}
	if e.store != nil {
		apiOpts.Ready = e.store
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(e.reports(), apiOpts).Handler(),
		ReadTimeout:       e.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: e.cfg.Server.ReadTimeout,
		WriteTimeout:      e.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("raket listening",
			zap.String("addr", addr),
			zap.String("rules", e.cfg.Rules.Source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("server shutdown error", zap.Error(err))
			return err
		}
		e.logger.Info("server stopped")
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		e.logger.Error("server error", zap.Error(err))
		return err
	}
}
