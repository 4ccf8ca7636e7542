package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCannotConnect matches every *NetworkError.
var ErrCannotConnect = errors.New("cannot connect to server")

// HTTPError is returned when the server answered with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Method     string
	Path       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("httpclient: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *HTTPError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NetworkError is returned when the request was sent but no response
// arrived, including timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("httpclient: %s: %v", ErrCannotConnect, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrCannotConnect
}
