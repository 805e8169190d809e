package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	flockauth "github.com/flockhq/flockauth"
	"github.com/flockhq/flockauth/role"
)

// Denial reason tags. They are stable identifiers for clients and logs;
// the human-readable message stays generic.
const (
	ReasonMissingToken           = "missing_token"
	ReasonInvalidToken           = "invalid_token"
	ReasonExpiredToken           = "expired_token"
	ReasonUserNotFound           = "user_not_found"
	ReasonInsufficientRole       = "insufficient_role"
	ReasonInsufficientPermission = "insufficient_permission"
)

// Route declares the access requirements of one endpoint. The zero value
// requires authentication only. Public skips the guard entirely; MinRole
// and Permission, when both set, must both hold.
type Route struct {
	Public     bool
	MinRole    role.Role
	Permission string
}

type identityContextKey struct{}

// IdentityFromContext returns the identity the guard attached to the
// request, if any.
func IdentityFromContext(ctx context.Context) (*flockauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*flockauth.Identity)
	return id, ok
}

// Guard returns middleware enforcing the route's requirements. It reads
// the bearer token, delegates verification to the engine, checks role and
// permission against the engine's role table, and attaches the verified
// identity to the request context.
func Guard(engine *flockauth.Engine, route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if route.Public {
				next.ServeHTTP(w, r)
				return
			}
			if engine == nil {
				writeDenied(w, http.StatusUnauthorized, ReasonInvalidToken)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeDenied(w, http.StatusUnauthorized, ReasonMissingToken)
				return
			}

			identity, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				writeDenied(w, http.StatusUnauthorized, denialReason(err))
				return
			}

			table := engine.Roles()
			if route.MinRole != "" && !table.HasRole(identity.Role, route.MinRole) {
				writeDenied(w, http.StatusForbidden, ReasonInsufficientRole)
				return
			}
			if route.Permission != "" && !table.HasPermission(identity.Role, route.Permission) {
				writeDenied(w, http.StatusForbidden, ReasonInsufficientPermission)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth guards a route that needs a valid session and nothing more.
func RequireAuth(engine *flockauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, Route{})
}

// RequireRole guards a route behind a minimum role rank.
func RequireRole(engine *flockauth.Engine, min role.Role) func(http.Handler) http.Handler {
	return Guard(engine, Route{MinRole: min})
}

// RequirePermission guards a route behind a single permission key.
func RequirePermission(engine *flockauth.Engine, permission string) func(http.Handler) http.Handler {
	return Guard(engine, Route{Permission: permission})
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, flockauth.ErrTokenExpired):
		return ReasonExpiredToken
	case errors.Is(err, flockauth.ErrUserNotFound):
		return ReasonUserNotFound
	default:
		return ReasonInvalidToken
	}
}

func writeDenied(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	message := "unauthorized"
	if status == http.StatusForbidden {
		message = "forbidden"
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  message,
		"reason": reason,
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
