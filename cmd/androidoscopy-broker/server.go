// server.go — Connection-counting middleware enforcing
// ANDROIDOSCOPY_MAX_CONNECTIONS (spec §7). Unlike the rate limiter this
// is adapted from, there's no windowing or circuit breaker: the broker
// just rejects new connections once the concurrent count is at the cap,
// and releases the slot when the handler returns.
package main

import (
	"net/http"
	"sync/atomic"
)

type connectionLimiter struct {
	next    http.Handler
	max     int64
	current int64
}

func newConnectionLimiter(max int, next http.Handler) http.Handler {
	return &connectionLimiter{next: next, max: int64(max)}
}

func (l *connectionLimiter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt64(&l.current, 1) > l.max {
		atomic.AddInt64(&l.current, -1)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt64(&l.current, -1)
	l.next.ServeHTTP(w, r)
}
