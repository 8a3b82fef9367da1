package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	conflict := NewConflict("Username already exists", nil)
	wrapped := fmt.Errorf("register: %w", conflict)
	got := ToDomainError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusConflict, got.HTTPStatus)
	assert.Equal(t, "CONFLICT", got.Code)

	got = ToDomainError(sql.ErrNoRows)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)

	cause := errors.New("disk full")
	got = ToDomainError(cause)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.ErrorIs(t, got, cause)
	assert.Equal(t, "internal server error: disk full", got.Error())
}

func TestConstructors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"validation": {NewValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_FAILED"},
		"not found":  {NewNotFound("user", map[string]any{"username": "rick"}), http.StatusNotFound, "NOT_FOUND"},
		"locked":     {NewLocked("locked"), http.StatusLocked, "LOCKED"},
		"too many":   {NewTooManyRequests("slow down"), http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.status, got.HTTPStatus)
			assert.Equal(t, tc.code, got.Code)
		})
	}

	assert.Equal(t, "user not found", NewNotFound("user", nil).Error())
}
