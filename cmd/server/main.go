// Package main is the entry point for the sharing server. It serves the
// Delta Sharing REST surface and, when METRICS_ADDR is set, a Prometheus
// endpoint on a separate listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"deltashare-mock/internal/app"
	"deltashare-mock/internal/config"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	addr := fs.String("addr", "", "listen address, overrides DELTA_SHARING_SERVER_HOST/PORT")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus listen address, overrides METRICS_ADDR")
	catalogFile := fs.String("catalog", "", "catalog YAML file, overrides CATALOG_FILE")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if *addr != "" {
		if err := applyAddr(cfg, *addr); err != nil {
			return err
		}
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *catalogFile != "" {
		cfg.CatalogFile = *catalogFile
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, app.Deps{Cfg: cfg, Logger: logger})
	if err != nil {
		return err
	}

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	servers := []*http.Server{apiServer}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", a.Metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	shares := a.Catalog.Shares()
	tables, _ := a.Catalog.AllTables(shares[0].Name)
	logger.Info("sharing server starting",
		"addr", apiServer.Addr,
		"metrics_addr", cfg.MetricsAddr,
		"share", shares[0].Name,
		"tables", len(tables),
		"store", cfg.Storage.EndpointURL(),
		"bucket", cfg.Storage.Bucket,
		"env", cfg.Env,
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

// newLogger returns a JSON logger in production and a text logger otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// applyAddr sets Host and Port from a host:port flag value.
func applyAddr(cfg *config.Config, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid --addr port %q", portStr)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	cfg.Host, cfg.Port = host, port
	return nil
}
