package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type actorKey struct{}

// WithActor stores the authorized actor in ctx.
func WithActor(ctx context.Context, actor identity.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor built by RequirePermission.
func ActorFromContext(ctx context.Context) (identity.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(identity.Actor)
	return actor, ok
}

// RequirePermission checks the caller's role once and stores the resulting
// actor for the handler.
func RequirePermission(permission identity.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, raw, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			claims, err := jwt.ClaimsFromMap(raw)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			actor, err := identity.Authorize(claims.UserID, claims.EmployeeID, claims.Role, permission)
			if err != nil {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", permission, claims.Role))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
