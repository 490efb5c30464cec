package client

import (
	"errors"
	"fmt"
)

// Sentinels every *Error unwraps to, one per Kind.
var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("request rejected")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport: the request never got a response (DNS, refused, timeout).
	KindTransport Kind = iota + 1
	// KindAuth: 401, invalid credentials or signature.
	KindAuth
	// KindValidation: the request was rejected as malformed (4xx other than 401).
	KindValidation
	// KindServer: 5xx or an unstructured failure.
	KindServer
	// KindDecode: a 2xx response whose body does not match the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrUnavailable
	case KindAuth:
		return ErrUnauthorized
	case KindValidation:
		return ErrValidation
	case KindDecode:
		return ErrMalformedResponse
	default:
		return ErrServer
	}
}

// Error is the failure returned by every Client operation. Message is safe to
// show to the user as is.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Detail renders the error with its classification, for logs.
func (e *Error) Detail() string {
	return fmt.Sprintf("%s: %s (kind=%s status=%d)", e.Op, e.Message, e.Kind, e.Status)
}

// Message returns the user-facing message of err: the Message of an *Error
// anywhere in the chain, or err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// KindOf returns the Kind of err, or 0 if err is not a client error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch {
	case status == 401:
		return KindAuth
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindServer
	}
}
