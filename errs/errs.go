package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrTransport indicates a connection, DNS, TLS or timeout failure.
	ErrTransport = errors.New("transport error")
	// ErrHTTPStatus indicates the recording page answered with a non-200 status.
	ErrHTTPStatus = errors.New("unexpected page status")
	// ErrNotFound indicates the page markup carries no usable media field.
	ErrNotFound = errors.New("media url not found")
	// ErrBlocked indicates the redirect endpoint rejected the request with HTTP 418.
	ErrBlocked = errors.New("blocked by remote service")
	// ErrUnexpectedStatus indicates the redirect endpoint answered with neither a redirect nor 418.
	ErrUnexpectedStatus = errors.New("unexpected redirect status")
)

// Code classifies an Error.
type Code string

// Error codes
const (
	CodeTransport        Code = "TRANSPORT"
	CodeHTTPStatus       Code = "HTTP_STATUS"
	CodeNotFound         Code = "NOT_FOUND"
	CodeBlocked          Code = "BLOCKED"
	CodeUnexpectedStatus Code = "UNEXPECTED_STATUS"
)

// SnippetLimit is the maximum number of characters of a response body kept for diagnostics.
const SnippetLimit = 200

var sentinels = map[Code]error{
	CodeTransport:        ErrTransport,
	CodeHTTPStatus:       ErrHTTPStatus,
	CodeNotFound:         ErrNotFound,
	CodeBlocked:          ErrBlocked,
	CodeUnexpectedStatus: ErrUnexpectedStatus,
}

// Error is a failure of a single resolution step. It is matched against the
// package sentinels with errors.Is and unwraps to the transport cause, if any.
type Error struct {
	Code       Code   `json:"code"`
	Op         string `json:"op"`
	URL        string `json:"url,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	text := string(e.Code)
	if s, ok := sentinels[e.Code]; ok {
		text = s.Error()
	}
	msg := e.Op + ": " + text
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(": %q", e.Snippet)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		*Alias
		Cause string `json:"cause,omitempty"`
		Error string `json:"error"`
	}{
		Alias: (*Alias)(e),
		Cause: cause,
		Error: e.Error(),
	})
}

// Transport wraps a network failure of op against url.
func Transport(op, url string, err error) *Error {
	return &Error{Code: CodeTransport, Op: op, URL: url, Err: err}
}

// HTTPStatus reports a non-200 page response.
func HTTPStatus(op, url string, status int, body []byte) *Error {
	return &Error{Code: CodeHTTPStatus, Op: op, URL: url, StatusCode: status, Snippet: Snippet(body)}
}

// NotFound reports markup without a media field.
func NotFound(op string) *Error {
	return &Error{Code: CodeNotFound, Op: op}
}

// Blocked reports an HTTP 418 from the redirect endpoint.
func Blocked(op, url string, body []byte) *Error {
	return &Error{Code: CodeBlocked, Op: op, URL: url, StatusCode: 418, Snippet: Snippet(body)}
}

// UnexpectedStatus reports any other redirect endpoint status.
func UnexpectedStatus(op, url string, status int, body []byte) *Error {
	return &Error{Code: CodeUnexpectedStatus, Op: op, URL: url, StatusCode: status, Snippet: Snippet(body)}
}

// Snippet returns at most SnippetLimit characters of body without splitting a rune.
func Snippet(body []byte) string {
	if utf8.RuneCount(body) <= SnippetLimit {
		return string(body)
	}
	n := 0
	for i := range string(body) {
		if n == SnippetLimit {
			return string(body[:i])
		}
		n++
	}
	return string(body)
}

// IsBlocked returns true if err is an anti-automation rejection.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrBlocked)
}

// IsNotFound returns true if no media field was present.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport returns true if err is a network failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsStatus returns true if err carries an HTTP status from either endpoint.
func IsStatus(err error) bool {
	return errors.Is(err, ErrHTTPStatus) || errors.Is(err, ErrUnexpectedStatus) || errors.Is(err, ErrBlocked)
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
