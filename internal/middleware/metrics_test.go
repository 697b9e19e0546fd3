package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method, route string
	status        int
}

type fakeObserver struct{ got []observation }

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, observation{method, route, status})
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Get("/shares/{share}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/shares/a", "/shares/b", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, obs.got, 3)
	assert.Equal(t, observation{"GET", "/shares/{share}", 200}, obs.got[0])
	assert.Equal(t, observation{"GET", "/shares/{share}", 200}, obs.got[1])
	assert.Equal(t, http.StatusNotFound, obs.got[2].status)
}

func TestMetrics_PreRoutingRejectionsAreLabelled(t *testing.T) {
	obs := &fakeObserver{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Use(RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))
	r.Use(Gate(nil, BearerAuth(BearerAuthConfig{Token: "secret"})))
	r.Get("/shares", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	send := func(auth string) {
		req := httptest.NewRequest(http.MethodGet, "/shares", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	send("Bearer secret")
	send("")
	send("Bearer secret")

	require.Len(t, obs.got, 3)
	assert.Equal(t, observation{"GET", "/shares", 200}, obs.got[0])
	assert.Equal(t, observation{"GET", RejectedRoute, http.StatusUnauthorized}, obs.got[1])
	assert.Equal(t, observation{"GET", RejectedRoute, http.StatusTooManyRequests}, obs.got[2])
}
