package weather

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	KindUnknown        Kind = "unknown"
	KindInvalidRequest Kind = "invalid_request"
	KindTransport      Kind = "transport_failure"
	KindDecode         Kind = "decode_failure"
)

var (
	// ErrInvalidRequest matches failures where no request could be built.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTransport matches network and connection failures.
	ErrTransport = errors.New("transport failure")
	// ErrDecode matches responses that do not fit the documented schema.
	ErrDecode = errors.New("decode failure")

	// ErrLocationUnavailable is returned when the device position or place
	// cannot be determined and no fallback is configured.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// FetchError is the error returned by every failed fetch.
type FetchError struct {
	Kind Kind
	Mode Mode

	// StatusCode is the HTTP status when a response was received, else 0.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Kind, e.Mode)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match a FetchError against the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// NewFetchError builds a FetchError of the given kind.
func NewFetchError(kind Kind, mode Mode, err error) *FetchError {
	return &FetchError{Kind: kind, Mode: mode, Err: err}
}

// KindOf reports the failure kind carried by err, or "" for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
