package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/harliandi/go-sizefit/pkg/metrics"
)

// Logger logs each request and records HTTP metrics
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		log.Printf("%s %s %s %d %v",
			RequestID(r.Context()),
			r.Method,
			r.URL.Path,
			wrapped.status,
			elapsed,
		)

		// /metrics scrapes would otherwise count themselves
		if r.URL.Path != "/metrics" {
			metrics.RecordRequest(r.Method, r.URL.Path, fmt.Sprintf("%d", wrapped.status), elapsed.Seconds())
		}
	})
}

// Recovery turns panics into HTTP 500 responses
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC recovered: %v\n%s", err, debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"error":"Internal server error","message":"Request failed unexpectedly"}`)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
