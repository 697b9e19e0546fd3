package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestObserver receives per-request measurements.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// RejectedRoute is the route label of requests stopped by a gate stage or
// the rate limiter before routing.
const RejectedRoute = "rejected"

type rejectedKey struct{}

// markRejected flags r as stopped before routing. It is a no-op when the
// Metrics middleware is not mounted.
func markRejected(r *http.Request) {
	if flag, ok := r.Context().Value(rejectedKey{}).(*bool); ok {
		*flag = true
	}
}

// Metrics reports each request to obs, labelled by the matched chi route
// pattern rather than the raw path.
func Metrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rejected := new(bool)
			r = r.WithContext(context.WithValue(r.Context(), rejectedKey{}, rejected))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := ""
			if *rejected {
				route = RejectedRoute
			} else if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			obs.ObserveRequest(r.Method, route, status, time.Since(start))
		})
	}
}
