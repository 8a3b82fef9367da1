package dto

import (
	"net/http"
	"strings"
)

// HTTPResponse is the body shape shared by every error and status reply.
type HTTPResponse struct {
	HTTPStatusCode int    `json:"httpStatusCode"`
	HTTPStatus     string `json:"httpStatus"`
	Reason         string `json:"reason"`
	Message        string `json:"message"`
}

// NewHTTPResponse fills status name and reason from the numeric code.
func NewHTTPResponse(status int, message string) HTTPResponse {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown Status"
	}
	return HTTPResponse{
		HTTPStatusCode: status,
		HTTPStatus:     strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)),
		Reason:         strings.ToUpper(text),
		Message:        message,
	}
}
