package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ResponseToEntry snapshots resp as the cached response for req.
// The body is read once and the response gets an independent reader over
// the same bytes, so the returned entry and resp can be consumed separately.
func ResponseToEntry(req *http.Request, resp *http.Response) (*Entry, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
	}

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	data := make([]byte, len(body))
	copy(data, body)

	key := NewRequestKey(req)
	return &Entry{
		Method:     key.Method,
		URL:        key.URL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Data:       data,
		CachedAt:   time.Now(),
	}, nil
}

// EntryToResponse converts a cache entry back to an HTTP response for req.
// Each call returns a fresh body reader.
func EntryToResponse(entry *Entry, req *http.Request) *http.Response {
	headers := entry.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Length", strconv.Itoa(len(entry.Data)))

	status := entry.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
		Request:       req,
	}
}
