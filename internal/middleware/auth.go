// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"clomery/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// TokenKey is the context key for the verified login token.
	TokenKey contextKey = "token"

	requestIDKey contextKey = "request_id"
)

// TokenVerifier checks a presented token.
type TokenVerifier interface {
	IsSignedIn(ctx context.Context, id, value string) (*session.Token, error)
}

// RequireToken answers 401 unless the request carries a live
// "Authorization: Bearer <id>.<value>" token. The verified token is stored
// in the request context for TokenFromCtx.
func RequireToken(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, value, ok := session.ParseBearer(r.Header.Get("Authorization"))
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing token")
				return
			}

			tok, err := v.IsSignedIn(r.Context(), id, value)
			if err != nil {
				slog.Error("verify token", "request_id", RequestIDFromCtx(r.Context()), "error", err)
				writeJSONError(w, http.StatusServiceUnavailable, "token check unavailable")
				return
			}
			if tok == nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), TokenKey, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromCtx extracts the verified token from the request context.
// Returns nil if RequireToken did not run.
func TokenFromCtx(ctx context.Context) *session.Token {
	tok, _ := ctx.Value(TokenKey).(*session.Token)
	return tok
}
