package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is five days, 432,000,000 ms.
	DefaultTokenTTL = 432_000_000 * time.Millisecond

	// AuthoritiesClaim is the claim holding the authority array.
	AuthoritiesClaim = "Authority"
)

// ErrInvalidPrincipal is returned by Issue when the principal has no username.
var ErrInvalidPrincipal = errors.New("principal must have a username")

// Principal is the identity encoded into a token.
type Principal struct {
	Username    string
	Authorities []string
}

// AuthorityList decodes the authority claim. Anything that is not an array
// of strings decodes to an empty list instead of failing the whole token.
type AuthorityList []string

func (a *AuthorityList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		*a = nil
		return nil
	}
	*a = list
	return nil
}

// Claims describes JWT payload.
type Claims struct {
	Authorities AuthorityList `json:"Authority"`
	jwt.RegisteredClaims
}

func (c *Claims) authorities() []string {
	if len(c.Authorities) == 0 {
		return []string{}
	}
	return append([]string(nil), c.Authorities...)
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager. A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenManager(secret, issuer, audience string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	tm := &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// TTL returns the validity window applied to new tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue builds and signs a token for the principal. Authorities keep the
// principal's order.
func (tm *TokenManager) Issue(p Principal) (string, error) {
	if strings.TrimSpace(p.Username) == "" {
		return "", ErrInvalidPrincipal
	}

	now := tm.now()
	authorities := make(AuthorityList, len(p.Authorities))
	copy(authorities, p.Authorities)

	claims := &Claims{
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(tm.secret)
}

// Verify checks signature, structure and issuer and returns the authorities.
// Expiry is not judged here; see IsValid and Validate.
func (tm *TokenManager) Verify(tokenStr string) ([]string, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.authorities(), nil
}

// Subject returns the username of a structurally valid token.
func (tm *TokenManager) Subject(tokenStr string) (string, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiresAt returns the expiry instant of a structurally valid token.
func (tm *TokenManager) ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, newTokenError(TokenMalformed, nil)
	}
	return claims.ExpiresAt.Time, nil
}

// IsValid reports whether username is set and the token has not yet expired.
// The signature is re-checked, so a forged token is never valid.
func (tm *TokenManager) IsValid(username, tokenStr string) bool {
	if username == "" {
		return false
	}
	exp, err := tm.ExpiresAt(tokenStr)
	if err != nil {
		return false
	}
	return exp.After(tm.now())
}

// Validate combines structural and temporal checks into a single result. The
// filter uses it so each request parses the token once.
func (tm *TokenManager) Validate(tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(tm.now()) {
		return nil, newTokenError(TokenExpired, nil)
	}
	return claims, nil
}

// parse verifies signature and issuer without judging time based claims.
func (tm *TokenManager) parse(tokenStr string) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, newTokenError(TokenMalformed, nil)
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS512 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, newTokenError(TokenMalformed, nil)
	}
	if claims.Issuer != tm.issuer {
		return nil, newTokenError(TokenForged, jwt.ErrTokenInvalidIssuer)
	}
	return claims, nil
}

func classify(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newTokenError(TokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newTokenError(TokenForged, err)
	default:
		return newTokenError(TokenMalformed, err)
	}
}
