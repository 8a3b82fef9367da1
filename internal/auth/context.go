package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const securityContextKey = "auth_security_context"

type securityContextCtxKey struct{}

// SecurityContext holds the authenticated caller of a single request.
type SecurityContext struct {
	Username    string
	Authorities []string
}

// HasAuthority reports whether the caller holds the authority.
func (s *SecurityContext) HasAuthority(authority string) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// HasAnyAuthority reports whether the caller holds at least one of the authorities.
func (s *SecurityContext) HasAnyAuthority(authorities ...string) bool {
	for _, a := range authorities {
		if s.HasAuthority(a) {
			return true
		}
	}
	return false
}

// WithSecurityContext returns a copy of ctx carrying sc.
func WithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextCtxKey{}, sc)
}

// FromContext retrieves the security context from a standard context.
func FromContext(ctx context.Context) (*SecurityContext, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(securityContextCtxKey{}).(*SecurityContext)
	if !ok || sc == nil {
		return nil, false
	}
	return sc, true
}

// SecurityContextFrom retrieves the security context installed for this request.
func SecurityContextFrom(c *fiber.Ctx) (*SecurityContext, bool) {
	sc, ok := c.Locals(securityContextKey).(*SecurityContext)
	if !ok || sc == nil {
		return nil, false
	}
	return sc, true
}

func setSecurityContext(c *fiber.Ctx, sc *SecurityContext) {
	c.Locals(securityContextKey, sc)
	c.SetUserContext(WithSecurityContext(c.UserContext(), sc))
}

func clearSecurityContext(c *fiber.Ctx) {
	c.Locals(securityContextKey, (*SecurityContext)(nil))
	c.SetUserContext(WithSecurityContext(c.UserContext(), nil))
}
