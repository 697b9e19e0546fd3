package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuthConfig configures the BearerAuth stage.
type BearerAuthConfig struct {
	Token string
	// ExemptPaths are served without a credential.
	ExemptPaths []string
	// QueryTokenPrefix is the path prefix under which a "token" query
	// parameter is accepted when no Authorization header is sent.
	QueryTokenPrefix string
	// OnFailure is called for every rejected request. Optional.
	OnFailure func()
}

// BearerAuth returns a stage that requires the shared bearer token.
func BearerAuth(cfg BearerAuthConfig) Stage {
	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}
	want := []byte(cfg.Token)

	reject := func(reason string) *Rejection {
		if cfg.OnFailure != nil {
			cfg.OnFailure()
		}
		return &Rejection{Status: http.StatusUnauthorized, Message: "Unauthorized", Reason: reason}
	}

	return func(r *http.Request) *Rejection {
		if _, ok := exempt[r.URL.Path]; ok {
			return nil
		}

		token, ok := presentedToken(r, cfg.QueryTokenPrefix)
		if !ok {
			return reject("missing credential")
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			return reject("credential mismatch")
		}
		return nil
	}
}

// presentedToken returns the credential from the Authorization header, or
// from the token query parameter for paths under queryPrefix.
func presentedToken(r *http.Request, queryPrefix string) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		return token, ok
	}
	if queryPrefix != "" && strings.HasPrefix(r.URL.Path, queryPrefix) {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}
