package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorClass represents a classification of fetch outcomes.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures (offline, DNS, refused).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents fetches that hit a deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled represents fetches aborted by the caller.
	ErrorClassCanceled ErrorClass = "canceled"
)

// FetchError is returned when no response could be obtained from the network.
type FetchError struct {
	URL        string
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.ErrorClass, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error", e.URL, e.ErrorClass)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyError maps a transport error to an ErrorClass.
func ClassifyError(err error) ErrorClass {
	if errors.Is(err, context.Canceled) {
		return ErrorClassCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}

// ClassifyStatus maps an HTTP status to an ErrorClass.
// Returns "" for non-error statuses.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == 0:
		return ErrorClassNetwork
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// IsErrorResponse reports whether resp is a network-error typed response.
// Such responses carry status 0 and are never cacheable.
func IsErrorResponse(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == 0
}

// NewErrorResponse builds a network-error typed response for req.
func NewErrorResponse(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: 0,
		Header:     http.Header{},
		Body:       http.NoBody,
		Request:    req,
	}
}
