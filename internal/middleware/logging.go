package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// maxLoggedBody is how much of a request body is copied into the log.
const maxLoggedBody = 1024

// RequestLogger logs one record per request with method, path, redacted
// query, a prefix of the body, status, size, duration, and request id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			body := peekBody(r)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", RequestIDFromContext(r.Context()),
			}
			if q := RedactQuery(r.URL.RawQuery); q != "" {
				attrs = append(attrs, "query", q)
			}
			if body != "" {
				attrs = append(attrs, "body", body)
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// RedactQuery replaces the value of any "token" parameter.
func RedactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable]"
	}
	if _, ok := values["token"]; ok {
		values.Set("token", "REDACTED")
	}
	return values.Encode()
}

// peekBody returns up to maxLoggedBody bytes of the request body and puts
// them back so the handler still sees the full body.
func peekBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	buf := make([]byte, maxLoggedBody)
	n, err := io.ReadFull(r.Body, buf)
	buf = buf[:n]
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if n == 0 && err != nil {
		return ""
	}
	return string(buf)
}

type readCloser struct {
	io.Reader
	io.Closer
}
