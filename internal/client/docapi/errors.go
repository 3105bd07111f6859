package docapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrVersionConflict    = errors.New("version conflict")
)

// HTTPError is a non-2xx answer. It matches the sentinel for the statuses the
// server uses for them.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrStorageUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	case ErrVersionConflict:
		return e.StatusCode == http.StatusConflict
	case ErrInvalidCredentials:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Kind is a short error label for log fields.
type Kind string

const (
	KindNone        Kind = ""
	KindCanceled    Kind = "canceled"
	KindNetwork     Kind = "network"
	KindStorage     Kind = "storage"
	KindCredentials Kind = "credentials"
	KindConflict    Kind = "conflict"
	KindMalformed   Kind = "malformed"
	KindHTTP        Kind = "http"
	KindUnknown     Kind = "unknown"
)

// Classify maps an error from this package to its Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	switch {
	case errors.Is(err, ErrNetworkFailure):
		return KindNetwork
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorage
	case errors.Is(err, ErrInvalidCredentials):
		return KindCredentials
	case errors.Is(err, ErrVersionConflict):
		return KindConflict
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return KindHTTP
	}
	return KindUnknown
}
