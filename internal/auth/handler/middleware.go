package handler

import (
	"net/http"
	"strings"

	"github.com/pspdems/dems-backend/internal/auth/jwt"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/httputil"
)

// Authenticate verifies the bearer token and attaches the resolved actor to
// the request context. Downstream code never re-derives user/role/plant.
func Authenticate(manager *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.Error(w, errors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := manager.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				httputil.Error(w, err)
				return
			}

			a := &actor.Actor{
				ID:       claims.UserID,
				Login:    claims.Login,
				FullName: claims.FullName,
				Role:     claims.Role,
				PlantID:  claims.PlantID,
			}

			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}

// RequireRole rejects requests whose actor lacks one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actor.FromContext(r.Context())
			if a == nil {
				httputil.Error(w, errors.Unauthorized("not authenticated"))
				return
			}
			if _, ok := allowed[a.Role]; !ok {
				httputil.Error(w, errors.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
