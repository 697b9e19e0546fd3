package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Rejection stops a request before it reaches a handler.
type Rejection struct {
	Status  int    // HTTP status written to the client
	Message string // value of the "error" field in the JSON body
	Reason  string // logged, never sent
}

// Stage inspects a request and returns a Rejection to stop it, or nil to
// let the next stage run.
type Stage func(r *http.Request) *Rejection

// Gate composes stages into a single middleware. Stages run in order and
// the first rejection wins.
func Gate(logger *slog.Logger, stages ...Stage) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	chain := append([]Stage(nil), stages...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, stage := range chain {
				if rej := stage(r); rej != nil {
					logger.Warn("request rejected",
						"method", r.Method,
						"path", r.URL.Path,
						"status", rej.Status,
						"reason", rej.Reason,
						"request_id", RequestIDFromContext(r.Context()),
					)
					markRejected(r)
					writeError(w, rej.Status, rej.Message)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
