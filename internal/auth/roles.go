package auth

import (
	"github.com/gofiber/fiber/v2"
)

// RequireAuthenticated ensures the filter installed a security context.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		if _, ok := SecurityContextFrom(c); !ok {
			return AuthenticationEntryPoint(c)
		}
		return c.Next()
	}
}

// RequireAnyAuthority ensures the caller holds one of the allowed authorities.
func RequireAnyAuthority(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		sc, ok := SecurityContextFrom(c)
		if !ok {
			return AuthenticationEntryPoint(c)
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if !sc.HasAnyAuthority(allowed...) {
			return AccessDeniedHandler(c)
		}
		return c.Next()
	}
}
