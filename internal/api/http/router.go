package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maputo/user-service/internal/api/http/handlers"
	"github.com/maputo/user-service/internal/auth"
	"github.com/maputo/user-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Users      *handlers.UsersHandler
	AuthFilter *auth.AuthFilter
	LoginLimit *LoginRateLimiter
}

// RegisterRoutes wires HTTP routes. The auth filter runs on every request;
// guards decide per route. Nothing may be registered after it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.AuthFilter.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	user := app.Group("/user")

	login := []fiber.Handler{cfg.Users.Login}
	if cfg.LoginLimit != nil {
		login = append([]fiber.Handler{cfg.LoginLimit.Handle}, login...)
	}
	user.Post("/login", login...)
	user.Post("/register", cfg.Users.Register)
	user.Post("/resetpassword/:email", cfg.Users.ResetPassword)
	user.Get("/image/profile/:username", cfg.Users.TemporaryProfileImage)
	user.Get("/image/:username/:filename", cfg.Users.ProfileImage)

	user.Get("/list", auth.RequireAnyAuthority(domain.AuthorityUserRead), cfg.Users.ListUsers)
	user.Get("/find/:username", auth.RequireAnyAuthority(domain.AuthorityUserRead), cfg.Users.FindUser)
	user.Post("/add", auth.RequireAnyAuthority(domain.AuthorityUserCreate), cfg.Users.AddUser)
	user.Post("/update", auth.RequireAnyAuthority(domain.AuthorityUserUpdate), cfg.Users.UpdateUser)
	user.Post("/updateProfileImage", auth.RequireAuthenticated(), cfg.Users.UpdateProfileImage)
	user.Delete("/delete/:id", auth.RequireAnyAuthority(domain.AuthorityUserDelete), cfg.Users.DeleteUser)

	// Registered last and without a method so misses stay 404 instead of 405.
	app.Use(noMapping)
}

func noMapping(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodOptions {
		return c.SendStatus(fiber.StatusOK)
	}
	return fiber.ErrNotFound
}
