package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID extracts the authenticated user ID attached by RequireAccess.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// BearerFromRequest extracts a token from the request. It prefers the
// Authorization header and falls back to the "token" query parameter, which
// is the handshake surface for websocket upgrades where no request/response
// cycle exists yet.
func BearerFromRequest(r *http.Request) (string, error) {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrInvalidToken
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t, nil
	}

	return "", ErrTokenMissing
}

// RequireAccess guards an HTTP handler with access-token verification.
//
// Missing credential -> 401. Present but invalid/expired -> 403. Valid ->
// the resolved user ID is attached to the request context and the wrapped
// handler runs. The guard never consults storage.
func RequireAccess(tokens *TokenService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerFromRequest(r)
		if err != nil {
			if err == ErrTokenMissing {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		userID, err := tokens.VerifyAccess(token)
		if err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
