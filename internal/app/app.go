// Package app wires the sharing server's components from configuration.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"deltashare-mock/internal/api"
	"deltashare-mock/internal/catalog"
	"deltashare-mock/internal/config"
	"deltashare-mock/internal/domain"
	"deltashare-mock/internal/metrics"
	"deltashare-mock/internal/middleware"
	"deltashare-mock/internal/seed"
	"deltashare-mock/internal/service/delivery"
	"deltashare-mock/internal/service/sharing"
	"deltashare-mock/internal/service/storage"
)

// Deps holds what main() provides. Store, Catalog, Seed, and Metrics are
// optional; New builds them from Cfg when nil.
type Deps struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Store   domain.ObjectStore
	Catalog *catalog.Catalog
	Seed    fs.FS
	Metrics *metrics.Registry
}

// App is the fully wired server.
type App struct {
	Catalog  *catalog.Catalog
	Sharing  *sharing.Service
	Delivery *delivery.Service
	Metrics  *metrics.Registry
	Handler  http.Handler
}

// New builds every component. ctx bounds background work started by the
// HTTP middleware.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := deps.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Load(cfg.CatalogFile); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	store := deps.Store
	if store == nil {
		s3, err := storage.NewS3Store(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("create object store client: %w", err)
		}
		store = s3
	}

	seedFS := deps.Seed
	if seedFS == nil {
		seedFS = seed.Open(cfg.SeedDir)
	}

	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	sharingSvc := sharing.NewService(cat, cfg.BearerToken, logger.With("component", "sharing"))
	deliverySvc := delivery.NewService(store, delivery.Options{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Seed:      seedFS,
		Recorder:  reg,
	}, logger.With("component", "delivery"))

	h := api.NewHandler(sharingSvc, deliverySvc, cfg.PublicBaseURL, logger.With("component", "api"))
	router := api.NewRouter(ctx, h, api.RouterConfig{
		BearerToken:        cfg.BearerToken,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Observer:      reg,
		OnAuthFailure: reg.RecordAuthFailure,
	}, logger)

	return &App{
		Catalog:  cat,
		Sharing:  sharingSvc,
		Delivery: deliverySvc,
		Metrics:  reg,
		Handler:  router,
	}, nil
}
