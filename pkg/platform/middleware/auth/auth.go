// Package auth trusts the identity asserted by the upstream gateway. The
// gateway authenticates the caller and forwards the acting user and role in
// headers; this service only authorizes.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "civitas/pkg/domain"
	"civitas/pkg/requestcontext"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Actor copies the asserted actor into the context. Requests without actor
// headers pass through unauthenticated; malformed headers are rejected.
func Actor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := strings.TrimSpace(r.Header.Get(HeaderActorID))
			role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole)))
			if rawID == "" && role == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			actorID, err := id.ParseUserID(rawID)
			if err != nil || role == "" {
				logger.WarnContext(ctx, "rejected malformed actor headers",
					"error", err,
					"role", role,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid actor headers")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actorID, role)))
		})
	}
}

// RequireActor rejects requests that reached it without an actor.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.ActorID(ctx).IsNil() {
				logger.WarnContext(ctx, "unauthorized access - missing actor",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing actor headers")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
