package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenPrefix precedes the token in the Authorization header.
const TokenPrefix = "Bearer "

// AuthFilter installs a SecurityContext for requests carrying a valid bearer
// token. It never rejects a request itself; guards further down the chain do.
type AuthFilter struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewAuthFilter constructs the filter.
func NewAuthFilter(tokens *TokenManager, logger *zap.Logger) *AuthFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthFilter{tokens: tokens, logger: logger}
}

// Handle runs once per request.
func (f *AuthFilter) Handle(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodOptions {
		c.Status(fiber.StatusOK)
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, TokenPrefix) {
		return c.Next()
	}
	token := header[len(TokenPrefix):]

	claims, err := f.tokens.Validate(token)
	if err != nil {
		f.reject(c, err)
		return c.Next()
	}
	if claims.Subject == "" {
		f.reject(c, newTokenError(TokenMalformed, nil))
		return c.Next()
	}

	if _, ok := SecurityContextFrom(c); !ok {
		setSecurityContext(c, &SecurityContext{Username: claims.Subject, Authorities: claims.authorities()})
	}

	return c.Next()
}

func (f *AuthFilter) reject(c *fiber.Ctx, err error) {
	clearSecurityContext(c)

	fields := []zap.Field{zap.String("path", c.Path())}
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		fields = append(fields, zap.Stringer("kind", tokenErr.Kind))
		if cause := tokenErr.Cause(); cause != nil {
			fields = append(fields, zap.NamedError("cause", cause))
		}
	} else {
		fields = append(fields, zap.Error(err))
	}
	f.logger.Debug("bearer token rejected", fields...)
}
