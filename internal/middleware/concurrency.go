package middleware

import (
	"log"
	"net/http"
	"sync"

	"github.com/harliandi/go-sizefit/pkg/metrics"
)

// ConcurrencyLimiter caps the number of requests processed at once
type ConcurrencyLimiter struct {
	semaphore chan struct{}
	mu        sync.Mutex
	active    int
	max       int
}

// NewConcurrencyLimiter creates a limiter with the given slot count
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{
		semaphore: make(chan struct{}, max),
		max:       max,
	}
}

// Acquire tries to take a slot; false means the limit is reached
func (cl *ConcurrencyLimiter) Acquire() bool {
	select {
	case cl.semaphore <- struct{}{}:
		cl.mu.Lock()
		cl.active++
		active := cl.active
		cl.mu.Unlock()
		metrics.UpdateConcurrency(active)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire
func (cl *ConcurrencyLimiter) Release() {
	<-cl.semaphore
	cl.mu.Lock()
	cl.active--
	active := cl.active
	cl.mu.Unlock()
	metrics.UpdateConcurrency(active)
}

// ConcurrencyLimit returns middleware that sheds load above max concurrent
// requests instead of queueing them.
func ConcurrencyLimit(max int) func(http.Handler) http.Handler {
	cl := NewConcurrencyLimiter(max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.Acquire() {
				log.Printf("Concurrency limit reached: %d", max)
				metrics.RecordConcurrencyLimitExceeded()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"Service busy, please try again"}`))
				return
			}
			defer cl.Release()
			next.ServeHTTP(w, r)
		})
	}
}
