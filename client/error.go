package client

import (
	"errors"
	"fmt"
)

// Kind classifies platform failures so callers can pick a recovery path
// without parsing messages.
type Kind int

const (
	// KindUnknown covers codes the client does not recognize.
	KindUnknown Kind = iota
	// KindAuth covers invalid, expired or missing credentials.
	KindAuth
	// KindBadInput covers requests the platform rejected as malformed.
	KindBadInput
	// KindQuota covers per-account execution limits.
	KindQuota
)

// Platform error codes, as reported in the JSON error envelope.
const (
	codeBadInput       = 8000
	codeBadCredentials = 8002
	codeExpiredKey     = 8003
	codeMissingKey     = 8004
	codeMaxExecutions  = 2000
	codeMaxRunning     = 2001
)

// Error is a failure reported by the platform through its error envelope.
type Error struct {
	Code    int    `json:"errorCode"`
	Message string `json:"errorMessage"`
}

// Kind maps the platform code to a failure class.
func (e *Error) Kind() Kind {
	switch e.Code {
	case codeBadCredentials, codeExpiredKey, codeMissingKey:
		return KindAuth
	case codeBadInput:
		return KindBadInput
	case codeMaxExecutions, codeMaxRunning:
		return KindQuota
	}
	return KindUnknown
}

// Error renders the platform message with an interpretation where the code
// has a known remedy.
func (e *Error) Error() string {
	switch e.Code {
	case codeBadCredentials:
		return fmt.Sprintf("platform error %d: %s (the API key was refused, check the credential and connect again)", e.Code, e.Message)
	case codeExpiredKey:
		return fmt.Sprintf("platform error %d: %s (the API key has expired, renew it on the portal and connect again)", e.Code, e.Message)
	case codeMissingKey:
		return fmt.Sprintf("platform error %d: %s (no API key was sent, connect with a credential first)", e.Code, e.Message)
	case codeBadInput:
		return fmt.Sprintf("platform error %d: %s (the platform rejected the request content)", e.Code, e.Message)
	case codeMaxExecutions, codeMaxRunning:
		return fmt.Sprintf("platform error %d: %s (execution quota reached, wait for running executions to finish or remove old ones)", e.Code, e.Message)
	}
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// NewError creates a platform error with the supplied code and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsAuth reports whether err is a platform credential failure.
func IsAuth(err error) bool {
	return kindOf(err) == KindAuth
}

// IsBadInput reports whether the platform rejected the request content.
func IsBadInput(err error) bool {
	return kindOf(err) == KindBadInput
}

// IsQuota reports whether err is a platform quota failure.
func IsQuota(err error) bool {
	return kindOf(err) == KindQuota
}

func kindOf(err error) Kind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind()
	}
	return KindUnknown
}
