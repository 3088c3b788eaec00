package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/internal/httpapi"
	"github.com/mesh-intelligence/roster/internal/membership"
	"github.com/mesh-intelligence/roster/internal/records"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serve the member, group and membership API over HTTP until\n" +
			"interrupted. /health reports liveness and /metrics exposes Prometheus metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.settings.HTTP.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError(fmt.Errorf("listen on %s: %w", addr, err))
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http.addr from config)")
	return cmd
}

// serve runs the API on ln until ctx is done, then shuts down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener) (err error) {
	store, err := a.openStore(a.logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		if derr := store.Detach(); derr != nil {
			a.logger.Error("detach store", zap.Error(derr))
			if err == nil {
				err = sysError(derr)
			}
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	v := records.NewValidator()
	manager := membership.NewManager(store,
		membership.WithLogger(a.logger),
		membership.WithMetrics(membership.NewMetrics(reg)),
	)
	server := httpapi.NewServer(manager,
		records.NewMemberService(store, v),
		records.NewGroupService(store, v),
		httpapi.WithLogger(a.logger),
		httpapi.WithMetrics(httpapi.NewMetrics(reg), reg),
		httpapi.WithCORSOrigins(a.settings.HTTP.CORSOrigins),
	)

	srv := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info("serving",
		zap.String("addr", ln.Addr().String()),
		zap.String("backend", a.settings.Backend),
	)

	select {
	case serveErr := <-errCh:
		if !errors.Is(serveErr, http.ErrServerClosed) {
			return sysError(fmt.Errorf("serve: %w", serveErr))
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return sysError(fmt.Errorf("shutdown: %w", err))
	}
	return nil
}
