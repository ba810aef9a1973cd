package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"http://localhost:3000"}, zap.NewNop())(okHandler)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:3000", wantOrigin: "http://localhost:3000"},
		{name: "disallowed origin", method: http.MethodGet, origin: "http://evil.test", wantOrigin: ""},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:3000", wantOrigin: "http://localhost:3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/reminders", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", tt.wantOrigin, got)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	store, err := NewRateLimitStore(nil)
	if err != nil {
		t.Fatalf("NewRateLimitStore() unexpected error: %v", err)
	}
	mw, err := RateLimit(store, "2-M")
	if err != nil {
		t.Fatalf("RateLimit() unexpected error: %v", err)
	}
	handler := mw(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected 200, 200, 429; got %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected a different client to be allowed, got %d", w.Code)
	}
}

func TestRateLimit_InvalidRate(t *testing.T) {
	t.Parallel()

	store, _ := NewRateLimitStore(nil)
	if _, err := RateLimit(store, "lots"); err == nil {
		t.Error("Expected error for invalid rate")
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	handler := ContentType(zap.NewNop(), "application/json", "application/yaml")(okHandler)

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{name: "GET without header", method: http.MethodGet, want: http.StatusOK},
		{name: "POST json", method: http.MethodPost, contentType: "application/json", want: http.StatusOK},
		{name: "POST json with charset", method: http.MethodPost, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "POST yaml", method: http.MethodPost, contentType: "application/yaml", want: http.StatusOK},
		{name: "POST missing", method: http.MethodPost, want: http.StatusBadRequest},
		{name: "POST form", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for {
			_, err := r.Body.Read(buf)
			if err != nil {
				if errors.Is(err, io.EOF) {
					w.WriteHeader(http.StatusOK)
					return
				}
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
		}
	})
	handler := MaxRequestSize(16, zap.NewNop())(readAll)

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, small)
	if w.Code != http.StatusOK {
		t.Errorf("Expected small body to pass, got %d", w.Code)
	}

	large := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, large)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected large body to be rejected, got %d", w.Code)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	w := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Request Timeout") {
		t.Errorf("Expected timeout body, got %q", w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	SecurityHeaders()(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/reminders", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'",
		"Cache-Control":           "no-store",
	}
	for header, value := range want {
		if got := rr.Header().Get(header); got != value {
			t.Errorf("Expected %s to be %q, got %q", header, value, got)
		}
	}
}
