package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
)

func TestResponseToEntry(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://code.jquery.com/jquery-3.7.1.min.js", nil)

	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "valid response",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Content-Type": []string{"application/javascript"},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`/*! jQuery v3.7.1 */`))),
			},
			wantErr: false,
		},
		{
			name: "response without body",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{},
			},
			wantErr: false,
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(req, tt.resp)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %v, want %v", entry.StatusCode, tt.resp.StatusCode)
			}
			if entry.Method != "GET" || entry.URL != req.URL.String() {
				t.Errorf("identity = %s %s", entry.Method, entry.URL)
			}

			// Verify body was read and restored
			body, _ := io.ReadAll(tt.resp.Body)
			if !bytes.Equal(body, entry.Data) {
				t.Errorf("restored body = %q, entry data = %q", body, entry.Data)
			}
		})
	}
}

func TestResponseToEntry_IndependentCopies(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://app.example.com/main.js", nil)
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte("console.log(1)"))),
	}

	entry, err := ResponseToEntry(req, resp)
	if err != nil {
		t.Fatalf("ResponseToEntry: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	body[0] = 'X'

	if string(entry.Data) != "console.log(1)" {
		t.Errorf("entry data changed with caller copy: %q", entry.Data)
	}
}

func TestResponseToEntry_NilRequest(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil))}
	if _, err := ResponseToEntry(nil, resp); err == nil {
		t.Error("ResponseToEntry with nil request should return error")
	}
}

func TestEntryToResponse(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "text/html; charset=utf-8")

	entry := &Entry{
		Method:     "GET",
		URL:        "https://app.example.com/calendar.html",
		StatusCode: 200,
		Headers:    headers,
		Data:       []byte("<html>calendar</html>"),
	}

	for i := 0; i < 2; i++ {
		resp := EntryToResponse(entry, nil)

		if resp.StatusCode != 200 {
			t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
		}
		if resp.Header.Get("Content-Type") != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
		}
		if resp.ContentLength != int64(len(entry.Data)) {
			t.Errorf("ContentLength = %d, want %d", resp.ContentLength, len(entry.Data))
		}

		body, _ := io.ReadAll(resp.Body)
		if string(body) != string(entry.Data) {
			t.Errorf("Body = %q, want %q", body, entry.Data)
		}
	}

	if entry.Headers.Get("Content-Length") != "" {
		t.Error("EntryToResponse must not mutate entry headers")
	}
}
