package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHTTPResponse(t *testing.T) {
	resp := NewHTTPResponse(http.StatusNotFound, "missing")

	assert.Equal(t, HTTPResponse{
		HTTPStatusCode: 404,
		HTTPStatus:     "NOT_FOUND",
		Reason:         "NOT FOUND",
		Message:        "missing",
	}, resp)
	assert.Equal(t, "FORBIDDEN", NewHTTPResponse(http.StatusForbidden, "").HTTPStatus)
	assert.Equal(t, "UNKNOWN_STATUS", NewHTTPResponse(799, "").HTTPStatus)
}
