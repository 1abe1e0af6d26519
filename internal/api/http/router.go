package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	Complaints      *handlers.ComplaintsHandler
	AdminComplaints *handlers.AdminComplaintsHandler
	AuthMiddleware  *auth.AuthMiddleware
	Gatherer        prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	users := app.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)

	app.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.Me)

	app.Get("/complaints", cfg.Complaints.Lookup)

	customer := cfg.AuthMiddleware.Require(domain.RoleCustomer)
	app.Get("/complaints/me", customer, cfg.Complaints.ListMine)
	app.Post("/complaints", customer, cfg.Complaints.Create)
	app.Put("/complaints/:id", customer, cfg.Complaints.Update)
	app.Delete("/complaints/:id", customer, cfg.Complaints.Delete)
	app.Get("/user/complaints", customer, cfg.Complaints.ListMine)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/complaints", cfg.AdminComplaints.List)
	admin.Get("/complaints/search", cfg.AdminComplaints.List)
	admin.Post("/complaints", cfg.Complaints.Create)
	admin.Put("/complaints/:id/resolve", cfg.AdminComplaints.Resolve)
	admin.Put("/complaints/:id", cfg.Complaints.Update)
	admin.Delete("/complaints/:id", cfg.Complaints.Delete)
}
