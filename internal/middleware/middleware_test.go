package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestSecurityHeaders tests security headers are set correctly
func TestSecurityHeaders(t *testing.T) {
	handler := Security(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Content-Security-Policy", "default-src 'none'"},
		{"X-XSS-Protection", "1; mode=block"},
		{"Referrer-Policy", "no-referrer"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := w.Header().Get(tt.header); got != tt.want {
				t.Errorf("%s header = %s, want %s", tt.header, got, tt.want)
			}
		})
	}
}

// TestRateLimit_Basic tests basic rate limiting
func TestRateLimit_Basic(t *testing.T) {
	handler := RateLimit(2, 2)(okHandler()) // 2 requests/sec, burst 2

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d should pass, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Third request should be rate limited, got %d", w.Code)
	}
}

// TestRateLimit_DifferentIPs tests rate limiting is per IP
func TestRateLimit_DifferentIPs(t *testing.T) {
	handler := RateLimit(1, 1)(okHandler())

	for _, addr := range []string{"192.168.1.1:1234", "192.168.1.2:1234"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("First request from %s should pass, got %d", addr, w.Code)
		}
	}
}

// TestRateLimit_Refill tests the token bucket refills over time
func TestRateLimit_Refill(t *testing.T) {
	handler := RateLimit(5, 1)(okHandler()) // 5 requests/sec, burst 1

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("First request should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Second request should be rate limited, got %d", w.Code)
	}

	time.Sleep(250 * time.Millisecond)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Request after refill should pass, got %d", w.Code)
	}
}

// TestConcurrencyLimit_Basic tests concurrent request limiting
func TestConcurrencyLimit_Basic(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	handler := ConcurrencyLimit(2)(slow)

	var successCount, rejectedCount int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			switch w.Code {
			case http.StatusOK:
				atomic.AddInt32(&successCount, 1)
			case http.StatusServiceUnavailable:
				atomic.AddInt32(&rejectedCount, 1)
			}
		}()
	}

	wg.Wait()

	if successCount > 2 {
		t.Errorf("Expected at most 2 successful requests, got %d", successCount)
	}
	if rejectedCount < 3 {
		t.Errorf("Expected at least 3 rejected requests, got %d", rejectedCount)
	}
}

// TestConcurrencyLimit_Sequential tests sequential requests all pass
func TestConcurrencyLimit_Sequential(t *testing.T) {
	handler := ConcurrencyLimit(2)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Sequential request %d should pass, got %d", i, w.Code)
		}
	}
}

// TestRecovery tests panic recovery
func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := Recovery(panicky)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 after panic, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", got)
	}
}

// TestRecovery_NoPanic tests normal requests pass through
func TestRecovery_NoPanic(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler := Recovery(next)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %s", w.Body.String())
	}
}

// TestLogger tests the logging middleware passes requests through
func TestLogger(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	handler := Logger(next)
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
}

// TestWithRequestID_Generated tests an ID is generated when absent
func TestWithRequestID_Generated(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := WithRequestID(next)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if seen == "" || seen == "-" {
		t.Error("Expected a generated request ID in the context")
	}
	if got := w.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("Response header %s = %q, want %q", HeaderRequestID, got, seen)
	}
}

// TestWithRequestID_Honored tests a caller-supplied ID is kept
func TestWithRequestID_Honored(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestID(r.Context()); got != "abc-123" {
			t.Errorf("Expected abc-123 in context, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := WithRequestID(next)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("Expected abc-123 echoed, got %q", got)
	}
}

// TestRequestID_Missing tests the fallback when no ID is in the context
func TestRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if got := RequestID(req.Context()); got != "-" {
		t.Errorf("Expected '-', got %q", got)
	}
}
