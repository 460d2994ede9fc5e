package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/Sternrassler/offline-cache/pkg/fetch"
)

// ErrOffline is the cause reported by FakeFetcher while offline.
var ErrOffline = errors.New("network unreachable")

// FakeResponse is a canned network response keyed by absolute URL.
type FakeResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string

	// ErrorType makes the fetch return a network-error typed response.
	ErrorType bool
}

// FakeFetcher is an in-memory fetch.Fetcher that counts calls per URL.
// Unknown URLs answer 404.
type FakeFetcher struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	calls     map[string]int
	offline   bool
}

var _ fetch.Fetcher = (*FakeFetcher)(nil)

// NewFakeFetcher creates an online fake with no responses.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		responses: make(map[string]FakeResponse),
		calls:     make(map[string]int),
	}
}

// Set configures the response for url.
func (f *FakeFetcher) Set(url string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = resp
}

// SetOffline makes every fetch fail with a network error.
func (f *FakeFetcher) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

// Calls returns the number of fetches for url.
func (f *FakeFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// TotalCalls returns the number of fetches.
func (f *FakeFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Reset clears call counters.
func (f *FakeFetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

// Fetch implements fetch.Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	f.mu.Lock()
	f.calls[url]++
	offline := f.offline
	resp, ok := f.responses[url]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &fetch.FetchError{URL: url, ErrorClass: fetch.ClassifyError(err), Err: err}
	}
	if offline {
		return nil, &fetch.FetchError{URL: url, ErrorClass: fetch.ErrorClassNetwork, Err: ErrOffline}
	}
	if !ok {
		resp = FakeResponse{StatusCode: http.StatusNotFound, Body: "not found"}
	}
	if resp.ErrorType {
		return fetch.NewErrorResponse(req), nil
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	headers := http.Header{}
	for k, v := range resp.Headers {
		headers.Set(k, v)
	}
	headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader([]byte(resp.Body))),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}
