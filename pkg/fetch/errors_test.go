package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"canceled", context.Canceled, ErrorClassCanceled},
		{"wrapped canceled", fmt.Errorf("do: %w", context.Canceled), ErrorClassCanceled},
		{"deadline", context.DeadlineExceeded, ErrorClassTimeout},
		{"net timeout", timeoutError{}, ErrorClassTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{0, ErrorClassNetwork},
		{200, ""},
		{304, ""},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := ClassifyStatus(tt.status); got != tt.expected {
				t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &FetchError{
				URL:        "https://code.jquery.com/jquery-3.7.1.min.js",
				ErrorClass: ErrorClassNetwork,
				Err:        errors.New("connection refused"),
			},
			expected: "fetch https://code.jquery.com/jquery-3.7.1.min.js: network error: connection refused",
		},
		{
			name: "without wrapped error",
			err: &FetchError{
				URL:        "https://app.example.com/",
				ErrorClass: ErrorClassTimeout,
			},
			expected: "fetch https://app.example.com/: timeout error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	fetchErr := &FetchError{URL: "https://app.example.com/", ErrorClass: ErrorClassNetwork, Err: wrappedErr}

	if !errors.Is(fetchErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	var target *FetchError
	if !errors.As(fmt.Errorf("outer: %w", fetchErr), &target) {
		t.Error("errors.As should find FetchError")
	}
}

func TestErrorResponse(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://cdn.jsdelivr.net/x.js", nil)
	resp := NewErrorResponse(req)

	if !IsErrorResponse(resp) {
		t.Error("IsErrorResponse should be true for NewErrorResponse")
	}
	if IsErrorResponse(&http.Response{StatusCode: 200}) {
		t.Error("IsErrorResponse should be false for 200")
	}
	if IsErrorResponse(nil) {
		t.Error("IsErrorResponse should be false for nil")
	}
}
