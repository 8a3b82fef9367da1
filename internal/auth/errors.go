package auth

import "errors"

// TokenCannotBeVerified is the only message callers ever see for a rejected token.
const TokenCannotBeVerified = "Token cannot be verified"

// TokenErrorKind classifies why a token was rejected.
type TokenErrorKind int

const (
	TokenMalformed TokenErrorKind = iota + 1
	TokenForged
	TokenExpired
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return "malformed"
	case TokenForged:
		return "forged"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenError is the normalized failure returned by TokenManager. The library
// cause is kept for logging but never rendered by Error.
type TokenError struct {
	Kind  TokenErrorKind
	cause error
}

func newTokenError(kind TokenErrorKind, cause error) *TokenError {
	return &TokenError{Kind: kind, cause: cause}
}

func (e *TokenError) Error() string {
	return TokenCannotBeVerified
}

// Cause returns the underlying verification error, if any.
func (e *TokenError) Cause() error {
	return e.cause
}

// IsTokenError reports whether err is a TokenError, optionally of one of the given kinds.
func IsTokenError(err error, kinds ...TokenErrorKind) bool {
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, kind := range kinds {
		if tokenErr.Kind == kind {
			return true
		}
	}
	return false
}
