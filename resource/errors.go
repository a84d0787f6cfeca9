package resource

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotHTTPResponse is returned when the transport hands back no HTTP response.
	ErrNotHTTPResponse = errors.New("received a non HTTP response")

	// ErrBadURL is returned by builders that cannot form the request URL.
	ErrBadURL = errors.New("the url cannot be built")
)

// ResponseError is a response outside the 2xx range. Message is taken from a
// {"error": "..."} body when there is one.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("received an error response from the server: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("received an error response from the server: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a ResponseError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == statusCode
}
