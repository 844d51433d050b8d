// Package remoteerr converts the heterogeneous error shapes produced by the
// hosted backend into one uniform value and classifies them.
package remoteerr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
)

// Normalized is the single error shape the rest of the client deals in.
type Normalized struct {
	// Message is the human-readable description.
	Message string `json:"message"`

	// Code identifies the failure class (see codes.go). Defaults to
	// CodeUnknown when the remote error carried no code.
	Code string `json:"code,omitempty"`

	// Details holds any structured payload the remote attached.
	Details map[string]any `json:"details,omitempty"`

	// cause is the original error, kept for errors.Is/As chains.
	cause error
}

func (e *Normalized) Error() string {
	if e.Code != "" && e.Code != CodeUnknown {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *Normalized) Unwrap() error { return e.cause }

// New builds a Normalized with an explicit code.
func New(code, message string) *Normalized {
	return &Normalized{Message: message, Code: code}
}

// remoteBody is the wire shape of a structured error response.
type remoteBody struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

// FromResponse normalizes an HTTP error response body. Bodies that are not
// structured errors fall back to the raw text with a status-derived code.
func FromResponse(status int, body []byte) *Normalized {
	var rb remoteBody
	if err := json.Unmarshal(body, &rb); err == nil && rb.Message != "" {
		code := rb.Code
		if code == "" {
			code = statusCode(status)
		}
		return &Normalized{Message: rb.Message, Code: code, Details: rb.Details}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "remote request failed"
	}
	return &Normalized{Message: msg, Code: statusCode(status)}
}

func statusCode(status int) string {
	switch status {
	case 401, 403:
		return CodeUnauthenticated
	case 404:
		return CodeNotFound
	case 429:
		return CodeRateLimited
	default:
		return CodeUnknown
	}
}

// Normalize maps any error into a Normalized value. Already-normalized
// errors pass through unchanged; context deadline and transport failures
// get classified codes; everything else keeps its message with CodeUnknown.
func Normalize(err error) *Normalized {
	if err == nil {
		return nil
	}

	var n *Normalized
	if errors.As(err, &n) {
		return n
	}

	code := CodeUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case isNetError(err):
		code = CodeNetwork
	}

	return &Normalized{Message: err.Error(), Code: code, cause: err}
}

func isNetError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsNotFound reports whether err is the remote's "no matching row" failure.
func IsNotFound(err error) bool {
	n := Normalize(err)
	return n != nil && (n.Code == CodeRowNotFound || n.Code == CodeNotFound)
}

// IsAuth reports whether err is an authentication or session failure.
func IsAuth(err error) bool {
	n := Normalize(err)
	if n == nil {
		return false
	}
	switch n.Code {
	case CodeUnauthenticated, CodeJWTExpired:
		return true
	}
	lower := strings.ToLower(n.Message)
	return strings.Contains(lower, "jwt") || strings.Contains(lower, "auth")
}

// IsTimeout reports whether err was a local deadline expiry.
func IsTimeout(err error) bool {
	n := Normalize(err)
	return n != nil && n.Code == CodeTimeout
}

// IsNetwork reports whether err was a transport-level failure.
func IsNetwork(err error) bool {
	n := Normalize(err)
	return n != nil && n.Code == CodeNetwork
}
