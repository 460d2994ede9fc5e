package cache

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeEntry(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		wantEncoding string
	}{
		{
			name:         "small body stays plain",
			data:         []byte("body{margin:0}"),
			wantEncoding: "",
		},
		{
			name:         "large compressible body",
			data:         []byte(strings.Repeat(".btn{display:inline-block}", 200)),
			wantEncoding: encodingZstd,
		},
		{
			name:         "empty body",
			data:         nil,
			wantEncoding: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Method:     "GET",
				URL:        "https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/css/bootstrap.min.css",
				StatusCode: 200,
				Headers:    http.Header{"Content-Type": []string{"text/css"}},
				Data:       tt.data,
				CachedAt:   time.Now().UTC().Truncate(time.Second),
			}

			raw, err := encodeEntry(entry)
			if err != nil {
				t.Fatalf("encodeEntry: %v", err)
			}

			if tt.wantEncoding != "" && !bytes.Contains(raw, []byte(`"encoding":"zstd"`)) {
				t.Errorf("expected zstd encoding marker in %d bytes", len(raw))
			}
			if tt.wantEncoding == "" && bytes.Contains(raw, []byte(`"encoding"`)) {
				t.Errorf("unexpected encoding marker")
			}

			got, err := decodeEntry(raw)
			if err != nil {
				t.Fatalf("decodeEntry: %v", err)
			}
			if !bytes.Equal(got.Data, tt.data) {
				t.Errorf("Data mismatch: got %d bytes, want %d", len(got.Data), len(tt.data))
			}
			if got.StatusCode != entry.StatusCode || got.URL != entry.URL {
				t.Errorf("got %d %s, want %d %s", got.StatusCode, got.URL, entry.StatusCode, entry.URL)
			}
			if got.Headers.Get("Content-Type") != "text/css" {
				t.Errorf("Content-Type = %q", got.Headers.Get("Content-Type"))
			}
		})
	}
}

func TestDecodeEntry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"unknown encoding", `{"url":"https://a/","encoding":"brotli"}`},
		{"corrupt zstd", `{"url":"https://a/","data":"AAAA","encoding":"zstd"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEntry([]byte(tt.raw))
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("decodeEntry() error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}
