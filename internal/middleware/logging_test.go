package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/email-reminders/internal/request"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		requestID     string
		handlerStatus int
	}{
		{name: "GET request", method: "GET", path: "/api/v1/reminders", handlerStatus: http.StatusOK},
		{name: "POST request", method: "POST", path: "/api/v1/commands", handlerStatus: http.StatusCreated},
		{name: "404 request", method: "GET", path: "/notfound", handlerStatus: http.StatusNotFound},
		{name: "caller request id", method: "GET", path: "/healthz", requestID: "req-123", handlerStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			var seenID string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenID = request.IDFromContext(r.Context())
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.requestID != "" {
				req.Header.Set(request.HeaderRequestID, tt.requestID)
			}
			w := httptest.NewRecorder()
			Logging(zap.New(core))(handler).ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("Expected status %d, got %d", tt.handlerStatus, w.Code)
			}
			if seenID == "" {
				t.Error("Expected request id in handler context")
			}
			if tt.requestID != "" && seenID != tt.requestID {
				t.Errorf("Expected caller request id %q, got %q", tt.requestID, seenID)
			}
			if got := w.Header().Get(request.HeaderRequestID); got != seenID {
				t.Errorf("Expected response header %q, got %q", seenID, got)
			}

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request log entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != int64(tt.handlerStatus) {
				t.Errorf("Expected logged status %d, got %v", tt.handlerStatus, fields["status_code"])
			}
			if fields["path"] != tt.path {
				t.Errorf("Expected logged path %q, got %v", tt.path, fields["path"])
			}
		})
	}
}

func TestLogging_TraceID(t *testing.T) {
	t.Parallel()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	core, logs := observer.New(zapcore.InfoLevel)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 http_request log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["trace_id"]; got != traceID.String() {
		t.Errorf("Expected trace_id %s, got %v", traceID, got)
	}
}
