package directory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-directory-session/httpclient"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
	"github.com/jrsteele09/go-directory-session/internal/utils"
)

// Kind tags the variant held by an Error.
type Kind int

const (
	// KindRequest covers failures before anything was sent, such as an
	// unencodable body or an unreadable token store.
	KindRequest Kind = iota
	KindNetwork
	KindHTTP
	KindValidation
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindValidation:
		return "validation"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "request"
	}
}

const (
	msgCannotConnect  = "Cannot connect to server"
	msgInvalidCreds   = "Invalid credentials"
	msgSessionExpired = "Session expired, please log in again"
	msgFallback       = "Something went wrong, please try again"
)

// validationOrder lists the fields whose messages are shown first.
var validationOrder = []string{"username", "email", "password", "password_confirm"}

// Error is the normalized failure returned by every Client operation.
type Error struct {
	Kind   Kind
	Status int
	Body   []byte
	// Detail is the server's generic "detail" message, if any.
	Detail string
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory: %s: %s: %v", e.Kind, e.Message(), e.Err)
	}
	return fmt.Sprintf("directory: %s: %s", e.Kind, e.Message())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errs.ErrSessionExpired for session expiry failures.
func (e *Error) Is(target error) bool {
	return e.Kind == KindSessionExpired && target == errs.ErrSessionExpired
}

// Message returns the text to show the user.
func (e *Error) Message() string {
	switch e.Kind {
	case KindNetwork:
		return msgCannotConnect
	case KindSessionExpired:
		return msgSessionExpired
	case KindValidation:
		for _, field := range validationOrder {
			if msgs := e.Fields[field]; len(msgs) > 0 {
				return msgs[0]
			}
		}
		if e.Detail != "" {
			return e.Detail
		}
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if msgs := e.Fields[k]; len(msgs) > 0 {
				return msgs[0]
			}
		}
		return e.statusMessage()
	case KindHTTP:
		if e.Detail != "" {
			return e.Detail
		}
		return e.statusMessage()
	}
	return msgFallback
}

func (e *Error) statusMessage() string {
	switch e.Status {
	case 0:
		return msgFallback
	case http.StatusUnauthorized:
		return msgInvalidCreds
	}
	return fmt.Sprintf("Request failed with status %d", e.Status)
}

// FieldErrors returns the first message per field, for inline form errors.
func (e *Error) FieldErrors() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Fields))
	for k, msgs := range e.Fields {
		if len(msgs) > 0 {
			out[k] = msgs[0]
		}
	}
	return out
}

// Normalize converts any error produced by the HTTP layer into an *Error.
// A nil error stays nil.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var dirErr *Error
	if errs.As(err, &dirErr) {
		return dirErr
	}

	var httpErr *httpclient.HTTPError
	if errs.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	if errs.Is(err, httpclient.ErrCannotConnect) {
		return &Error{Kind: KindNetwork, Err: err}
	}
	if errs.Is(err, errs.ErrSessionExpired) {
		return &Error{Kind: KindSessionExpired, Err: err}
	}
	return &Error{Kind: KindRequest, Err: err}
}

func fromHTTPError(httpErr *httpclient.HTTPError) *Error {
	e := &Error{
		Kind:   KindHTTP,
		Status: httpErr.StatusCode,
		Body:   httpErr.Body,
		Err:    httpErr,
	}

	var body map[string]any
	if err := json.Unmarshal(httpErr.Body, &body); err != nil {
		return e
	}

	if detail := utils.Messages(body["detail"]); len(detail) > 0 {
		e.Detail = detail[0]
	}

	if httpErr.StatusCode != http.StatusBadRequest {
		return e
	}

	fields := make(map[string][]string)
	for k, v := range body {
		if k == "detail" {
			continue
		}
		if msgs := utils.Messages(v); len(msgs) > 0 {
			fields[k] = msgs
		}
	}
	if len(fields) > 0 || e.Detail != "" {
		e.Kind = KindValidation
		e.Fields = fields
	}
	return e
}

func sessionExpired(cause error) *Error {
	return &Error{Kind: KindSessionExpired, Err: cause}
}
