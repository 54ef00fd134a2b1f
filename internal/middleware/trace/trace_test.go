package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	var seen string
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") || len(seen) != len("req_")+32 {
		t.Fatalf("unexpected generated id %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header %q != context id %q", rec.Header().Get(HeaderRequestID), seen)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddlewareReusesIncomingID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reused bool
	}{
		{"valid id", "req_0123abcd", true},
		{"uuid", "3f0e9c3a-8d1b-4c6e-9b55-0c1d2e3f4a5b", true},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, tt.header)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.header) != tt.reused {
				t.Errorf("seen %q, header %q, reused want %v", seen, tt.header, tt.reused)
			}
		})
	}
}

func TestMiddlewareCountsFailures(t *testing.T) {
	m := NewMiddleware(nil, func(*http.Request) string { return "1.2.3.4" })
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := m.GetMetrics().FailedRequests; got != 1 {
		t.Errorf("FailedRequests = %d, want 1", got)
	}
}
