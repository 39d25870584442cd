package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/agent-management/internal"
	"github.com/frahmantamala/agent-management/internal/transport"
)

// Requirement declares what a route demands from the authenticated
// principal. Roles and Permissions each use OR semantics internally;
// when both are set the two checks compose with AND. An empty
// requirement passes trivially.
type Requirement struct {
	Roles       []string
	Permissions []string
}

// Guard evaluates route requirements against the principal placed on the
// request context by the auth middleware.
type Guard struct {
	*transport.BaseHandler
}

func NewGuard(logger *slog.Logger) *Guard {
	return &Guard{BaseHandler: transport.NewBaseHandler(logger)}
}

// Require returns a middleware enforcing the given requirement. A
// missing principal is a Forbidden on its own: the authentication
// middleware runs earlier, so reaching this point unauthenticated means
// the route was wired without it.
func (g *Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := internal.UserFromContext(r.Context())
			if !ok {
				g.Logger.Warn("authorization check without principal",
					"path", r.URL.Path)
				g.WriteAppError(w, internal.NewForbiddenError("Authentication required", internal.ErrCodeNotAuthenticated))
				return
			}

			if len(req.Roles) > 0 && !principal.HasAnyRole(req.Roles) {
				g.Logger.Warn("access denied: insufficient roles",
					"user_id", principal.ID,
					"required_roles", req.Roles,
					"user_roles", principal.Roles)
				g.WriteAppError(w, internal.NewForbiddenError("Insufficient roles", internal.ErrCodeInsufficientRoles))
				return
			}

			if len(req.Permissions) > 0 && !principal.HasAnyPermission(req.Permissions) {
				g.Logger.Warn("access denied: insufficient permissions",
					"user_id", principal.ID,
					"required_permissions", req.Permissions,
					"user_permissions", principal.Permissions)
				g.WriteAppError(w, internal.NewForbiddenError("Insufficient permissions", internal.ErrCodeInsufficientPermissions))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissions is shorthand for permission-only requirements.
func (g *Guard) RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return g.Require(Requirement{Permissions: permissions})
}

// RequireRoles is shorthand for role-only requirements.
func (g *Guard) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return g.Require(Requirement{Roles: roles})
}
