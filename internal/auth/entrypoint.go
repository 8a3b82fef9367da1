package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/maputo/user-service/internal/api/dto"
)

const (
	// ForbiddenMessage answers requests that reach a protected route without a valid token.
	ForbiddenMessage = "You need to be log in to access this page"
	// AccessDeniedMessage answers authenticated callers lacking an authority.
	AccessDeniedMessage = "You do not have permission to access this page"
)

// AuthenticationEntryPoint writes the 403 body for unauthenticated access.
func AuthenticationEntryPoint(c *fiber.Ctx) error {
	return c.Status(http.StatusForbidden).JSON(dto.NewHTTPResponse(http.StatusForbidden, ForbiddenMessage))
}

// AccessDeniedHandler writes the 401 body for callers without the needed authority.
func AccessDeniedHandler(c *fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(dto.NewHTTPResponse(http.StatusUnauthorized, AccessDeniedMessage))
}
