package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ysalameh/paywatch/internal/constants"
	"github.com/ysalameh/paywatch/pkg/httputils"
)

const (
	APIKeyHeader = "X-API-Key"

	// apiKeyQueryParam is the fallback for the websocket endpoint; browsers
	// cannot set headers on an upgrade request.
	apiKeyQueryParam = "api_key"

	// openModeOwner is the identity assigned to every caller when no keys
	// are configured (MVP convenience).
	openModeOwner = "default"
)

type ctxKey int

const ownerIDKey ctxKey = iota

// OwnerFromContext returns the owner identity resolved by AuthMiddleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerIDKey).(string)
	return ownerID, ok
}

// AuthMiddleware resolves the caller to an owner identity from owner:key
// pairs. Requests without a resolvable identity are rejected before any
// handler logic runs.
func AuthMiddleware(ownerKeyPairs []string) func(http.Handler) http.Handler {
	ownersByKey := make(map[string]string, len(ownerKeyPairs))
	for _, pair := range ownerKeyPairs {
		owner, key, found := strings.Cut(strings.TrimSpace(pair), ":")
		owner = strings.TrimSpace(owner)
		key = strings.TrimSpace(key)
		if !found || owner == "" || key == "" {
			continue
		}
		ownersByKey[key] = owner
	}

	// If no keys are configured, run open with a single shared owner.
	if len(ownersByKey) == 0 {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerIDKey, openModeOwner)))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if apiKey == "" {
				apiKey = strings.TrimSpace(r.URL.Query().Get(apiKeyQueryParam))
			}
			if apiKey == "" {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			ownerID, ok := ownersByKey[apiKey]
			if !ok {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerIDKey, ownerID)))
		})
	}
}
