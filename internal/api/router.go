package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"deltashare-mock/internal/middleware"
)

// Route is one entry of the HTTP surface.
type Route struct {
	Method  string `json:"method"`
	Pattern string `json:"path"`
}

// Routes lists the HTTP surface in registration order. The not-implemented
// response echoes it so probing clients can discover what exists.
var Routes = []Route{
	{http.MethodGet, "/health"},
	{http.MethodGet, "/shares"},
	{http.MethodGet, "/shares/{share}"},
	{http.MethodGet, "/shares/{share}/schemas"},
	{http.MethodGet, "/shares/{share}/all-tables"},
	{http.MethodGet, "/shares/{share}/schemas/{schema}/tables"},
	{http.MethodGet, "/shares/{share}/schemas/{schema}/tables/{table}/metadata"},
	{http.MethodGet, "/shares/{share}/schemas/{schema}/tables/{table}/version"},
	{http.MethodPost, "/shares/{share}/schemas/{schema}/tables/{table}/query"},
	{http.MethodGet, "/files/{objectPath}"},
}

// RouterConfig holds the cross-cutting settings for NewRouter.
type RouterConfig struct {
	BearerToken        string
	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimitConfig // disabled when RequestsPerSecond is 0
	Observer           middleware.RequestObserver // optional
	OnAuthFailure      func()                     // optional
}

// NewRouter builds the full handler chain: request id, panic recovery,
// logging, metrics, CORS, rate limiting, the auth gate, then the routes.
// ctx bounds background work owned by the middleware.
func NewRouter(ctx context.Context, h *Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger.With("component", "http")))
	r.Use(middleware.Recover(logger))
	if cfg.Observer != nil {
		r.Use(middleware.Metrics(cfg.Observer))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{TableVersionHeader, middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
	}
	r.Use(middleware.Gate(logger.With("component", "auth"),
		middleware.BearerAuth(middleware.BearerAuthConfig{
			Token:            cfg.BearerToken,
			ExemptPaths:      []string{"/health"},
			QueryTokenPrefix: "/files/",
			OnFailure:        cfg.OnAuthFailure,
		}),
	))

	r.NotFound(notImplemented)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.Health)
	r.Route("/shares", func(r chi.Router) {
		r.Get("/", h.ListShares)
		r.Route("/{share}", func(r chi.Router) {
			r.Get("/", h.GetShare)
			r.Get("/schemas", h.ListSchemas)
			r.Get("/all-tables", h.ListAllTables)
			r.Get("/schemas/{schema}/tables", h.ListTables)
			r.Route("/schemas/{schema}/tables/{table}", func(r chi.Router) {
				r.Get("/metadata", h.GetMetadata)
				r.Get("/version", h.GetVersion)
				r.Post("/query", h.QueryTable)
			})
		})
	})
	r.Get("/files/*", h.GetFile)

	return r
}

type notImplementedResponse struct {
	Error  string  `json:"error"`
	Method string  `json:"method"`
	Path   string  `json:"path"`
	Routes []Route `json:"routes"`
}

func notImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, notImplementedResponse{
		Error:  "Not implemented",
		Method: r.Method,
		Path:   r.URL.Path,
		Routes: Routes,
	})
}
