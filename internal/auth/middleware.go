package auth

import (
	"net/http"
	"strings"

	"github.com/strefethen/fsapi-hub-go/internal/api"
	"github.com/strefethen/fsapi-hub-go/internal/apperrors"
	"github.com/strefethen/fsapi-hub-go/internal/config"
)

var publicPrefixes = []string{
	"/v1/health",
	"/v1/openapi",
}

// Middleware validates JWT tokens for protected routes. With no JWT_SECRET
// configured every request passes as a control client.
func Middleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled() {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), User{Sub: "anonymous", Scope: ScopeControl})))
				return
			}
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Missing or malformed bearer token"))
				return
			}

			payload, err := VerifyToken(cfg, token)
			if err != nil {
				if err == ErrTokenExpired {
					api.WriteError(w, r, apperrors.NewUnauthorizedError("Token has expired", apperrors.ErrorCodeAuthTokenExpired))
					return
				}
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Invalid token", apperrors.ErrorCodeAuthTokenInvalid))
				return
			}

			user := User{Sub: payload.Sub, Scope: payload.Scope}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireControl rejects read-only clients.
func RequireControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.CanControl() {
			api.WriteError(w, r, apperrors.NewForbiddenError("Token does not allow device control"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken reads the Authorization header, or the access_token query
// parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("access_token")
		return token, token != ""
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	return token, token != ""
}

func isPublicRoute(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
