package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *Error {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConnectFailed creates an error for a failed or timed out handshake.
func ConnectFailed(url string, err error) *Error {
	return Wrap(err, ErrCodeConnectFailed, fmt.Sprintf("failed to connect to %s", url)).
		WithDetail("url", url)
}

// TransportClosed creates an error for a socket that closed while calls were
// still waiting. The close code and reason are kept as details so callers can
// tell a refused connection from a dropped one.
func TransportClosed(code int, reason string) *Error {
	return New(ErrCodeTransportClosed,
		fmt.Sprintf("connection closed (code: %d, reason: %q)", code, reason)).
		WithDetail("code", code).
		WithDetail("reason", reason)
}

// TransportNotOpen creates an error for a call issued without an open socket.
func TransportNotOpen(method string) *Error {
	return New(ErrCodeTransportNotOpen, fmt.Sprintf("cannot call %s, transport not open", method)).
		WithDetail("method", method)
}

// CallFailed creates an error for an error reported by the remote side.
func CallFailed(method string, code int, message string) *Error {
	return New(ErrCodeCallFailed, fmt.Sprintf("call %s failed: %s", method, message)).
		WithDetail("method", method).
		WithDetail("rpcCode", code)
}

// MalformedResponse creates an error for a response that could not be decoded.
func MalformedResponse(method string, err error) *Error {
	return Wrap(err, ErrCodeMalformedResponse, fmt.Sprintf("malformed response for %s", method)).
		WithDetail("method", method)
}

// SubscriptionFailed creates an event channel failure error
func SubscriptionFailed(url string, err error) *Error {
	return Wrap(err, ErrCodeSubscriptionFailed, fmt.Sprintf("event subscription to %s failed", url)).
		WithDetail("url", url)
}

// SessionBusy creates an error for opening a repository while one is active.
func SessionBusy(state string) *Error {
	return New(ErrCodeSessionBusy, fmt.Sprintf("a repository session is already %s, close it first", state)).
		WithDetail("state", state)
}

// SessionNotLive creates an error for repository operations without a live session.
func SessionNotLive(state string) *Error {
	return New(ErrCodeSessionNotLive, fmt.Sprintf("no live repository session (state: %s)", state)).
		WithDetail("state", state)
}

// CloseInfo extracts the close code and reason from a TransportClosed error.
func CloseInfo(err error) (int, string, bool) {
	e, ok := As(err)
	if !ok || e.Code != ErrCodeTransportClosed {
		return 0, "", false
	}
	code, _ := e.Details["code"].(int)
	reason, _ := e.Details["reason"].(string)
	return code, reason, true
}
