package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
)

var (
	// Matches any [TokenError] with [errors.Is].
	ErrTokenUnavailable = errors.New("anti-forgery token unavailable")

	// Matches any [TransportError] with [errors.Is].
	ErrTransport = errors.New("portal API request failed")

	// Matches any [SessionError] with [errors.Is].
	ErrSessionInvalid = errors.New("portal session is not valid")

	// Returned (wrapped) when a request can not be built, eg because of a malformed host or a path without a leading "/". Nothing was sent.
	ErrInvalidRequest = errors.New("invalid portal API request")
)

// Returned when the [TokenSource] fails. The HTTP request was never sent.
type TokenError struct {
	Wrapped error
}

func (e *TokenError) Error() string {
	if e.Wrapped == nil {
		return ErrTokenUnavailable.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTokenUnavailable, e.Wrapped)
}

func (e *TokenError) Unwrap() error {
	return e.Wrapped
}

func (e *TokenError) Is(target error) bool {
	return target == ErrTokenUnavailable
}

// Returned for network-level failures (StatusCode is zero) and for non-2xx responses.
type TransportError struct {
	// HTTP status code, or 0 if no response was received
	StatusCode int

	// Error code and message from an OData error body, if the portal returned one. Informational only.
	Code    string
	Message string

	// The failed response, if one was received
	Response *Response

	Wrapped error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		if e.Wrapped == nil {
			return ErrTransport.Error()
		}
		return fmt.Sprintf("%s: %s", ErrTransport, e.Wrapped)
	}
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("%s (HTTP %d): %s: %s", ErrTransport, e.StatusCode, e.Code, e.Message)
	} else if e.Message != "" {
		return fmt.Sprintf("%s (HTTP %d): %s", ErrTransport, e.StatusCode, e.Message)
	} else if e.Wrapped != nil {
		return fmt.Sprintf("%s (HTTP %d): %s", ErrTransport, e.StatusCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (HTTP %d)", ErrTransport, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Wrapped
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Returned when a response with a successful status failed session validation, typically because the portal served its sign-in page instead of the requested resource.
type SessionError struct {
	StatusCode int
	Response   *Response
	Wrapped    error
}

func (e *SessionError) Error() string {
	if e.Wrapped == nil {
		return ErrSessionInvalid.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSessionInvalid, e.Wrapped)
}

func (e *SessionError) Unwrap() error {
	return e.Wrapped
}

func (e *SessionError) Is(target error) bool {
	return target == ErrSessionInvalid
}

// OData error response body, eg: {"error":{"code":"9004010C","message":"Resource not found for the segment 'foo'."}}
type ErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func transportErrorFromResponse(resp *Response) *TransportError {
	te := &TransportError{
		StatusCode: resp.StatusCode,
		Response:   resp,
	}
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt != "application/json" || len(resp.Body) == 0 {
		return te
	}
	var eb ErrorBody
	if err := json.Unmarshal(resp.Body, &eb); err != nil {
		te.Wrapped = fmt.Errorf("failed to decode error body: %w", err)
		return te
	}
	te.Code = eb.Error.Code
	te.Message = eb.Error.Message
	return te
}
