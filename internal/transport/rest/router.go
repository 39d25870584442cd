package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/agent-management/internal/agent"
	"github.com/frahmantamala/agent-management/internal/auth"
	"github.com/frahmantamala/agent-management/internal/rbac"
	"github.com/frahmantamala/agent-management/internal/transport/middleware"
	"github.com/frahmantamala/agent-management/internal/transport/swagger"
	"github.com/frahmantamala/agent-management/internal/user"
)

// RegisterAllRoutes wires every handler behind its authentication and
// authorization requirements. Requirements are declared here, next to
// the route, so the whole access policy is readable in one place.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	rbacHandler *rbac.Handler,
	agentHandler *agent.Handler,
	rateLimiter *middleware.RateLimiter,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)
	guard := auth.NewGuard(logger)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Metrics)
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware)
	}

	// Operational endpoints outside the API prefix.
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public auth routes.
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/register", authHandler.Register)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/forgot-password", authHandler.ForgotPassword)
			sr.Post("/reset-password", authHandler.ResetPassword)

			sr.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)
				pr.Post("/logout", authHandler.Logout)
				pr.Post("/logout-all", authHandler.LogoutAll)
				pr.Get("/me", authHandler.Me)
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			// Self-service routes carry no extra requirement.
			pr.Get("/users/profile", userHandler.Profile)
			pr.Post("/users/change-password", userHandler.ChangePassword)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(guard.RequirePermissions("users.create")).Post("/", userHandler.Create)
				ur.With(guard.RequirePermissions("users.read")).Get("/", userHandler.List)
				ur.With(guard.RequirePermissions("users.read")).Get("/{id}", userHandler.Get)
				ur.With(guard.RequirePermissions("users.update")).Put("/{id}", userHandler.Update)
				ur.With(guard.RequirePermissions("users.delete")).Delete("/{id}", userHandler.Delete)
				ur.With(guard.RequirePermissions("users.update")).Post("/{id}/restore", userHandler.Restore)
				ur.With(guard.Require(auth.Requirement{
					Roles:       []string{"admin"},
					Permissions: []string{"roles.assign"},
				})).Post("/{id}/roles", userHandler.AssignRole)
				ur.With(guard.Require(auth.Requirement{
					Roles:       []string{"admin"},
					Permissions: []string{"roles.assign"},
				})).Delete("/{id}/roles/{roleName}", userHandler.RemoveRole)
			})

			pr.Route("/roles", func(rr chi.Router) {
				rr.With(guard.RequirePermissions("roles.create")).Post("/", rbacHandler.CreateRole)
				rr.With(guard.RequirePermissions("roles.read")).Get("/", rbacHandler.ListRoles)
				rr.With(guard.RequirePermissions("roles.read")).Get("/{id}", rbacHandler.GetRole)
				rr.With(guard.RequirePermissions("roles.update")).Put("/{id}", rbacHandler.UpdateRole)
				rr.With(guard.RequirePermissions("roles.delete")).Delete("/{id}", rbacHandler.DeleteRole)
				rr.With(guard.RequirePermissions("roles.update")).Post("/{id}/permissions", rbacHandler.AttachPermission)
				rr.With(guard.RequirePermissions("roles.update")).Delete("/{id}/permissions/{permissionId}", rbacHandler.DetachPermission)
			})

			pr.Route("/permissions", func(pmr chi.Router) {
				pmr.With(guard.RequirePermissions("permissions.create")).Post("/", rbacHandler.CreatePermission)
				pmr.With(guard.RequirePermissions("permissions.read")).Get("/", rbacHandler.ListPermissions)
				pmr.With(guard.RequirePermissions("permissions.read")).Get("/{id}", rbacHandler.GetPermission)
				pmr.With(guard.RequirePermissions("permissions.update")).Put("/{id}", rbacHandler.UpdatePermission)
				pmr.With(guard.RequirePermissions("permissions.delete")).Delete("/{id}", rbacHandler.DeletePermission)
			})

			pr.Route("/agents", func(ar chi.Router) {
				ar.With(guard.RequirePermissions("agents.create")).Post("/", agentHandler.Create)
				ar.With(guard.RequirePermissions("agents.read")).Get("/", agentHandler.List)
				ar.With(guard.RequirePermissions("agents.read")).Get("/{id}", agentHandler.Get)
				ar.With(guard.RequirePermissions("agents.update")).Put("/{id}", agentHandler.Update)
				ar.With(guard.RequirePermissions("agents.delete")).Delete("/{id}", agentHandler.Delete)

				// Moving a subtree is an admin operation.
				ar.With(guard.Require(auth.Requirement{
					Roles:       []string{"admin"},
					Permissions: []string{"agents.update"},
				})).Put("/{id}/hierarchy", agentHandler.UpdateHierarchy)

				// Hierarchy reads enforce ancestry inside the service:
				// the route requirement only establishes the caller is
				// an agent or admin.
				ar.With(guard.RequireRoles("agent", "admin")).Get("/{id}/hierarchy", agentHandler.Hierarchy)
				ar.With(guard.RequireRoles("agent", "admin")).Get("/{id}/managed-users", agentHandler.ManagedUsers)
				ar.With(guard.RequireRoles("agent", "admin")).Post("/assign-user", agentHandler.AssignUser)
				ar.With(guard.RequireRoles("agent", "admin")).Delete("/remove-user/{userId}", agentHandler.RemoveUser)
			})
		})
	})
}
