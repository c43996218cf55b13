package api

import (
	"sync"
)

// ipLimiter caps concurrent in-flight requests per client IP and globally.
type ipLimiter struct {
	mu       sync.Mutex
	inflight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newIPLimiter(maxPerIP, maxTotal int) *ipLimiter {
	return &ipLimiter{
		inflight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a request for ip. Returns false if the IP or global
// limit has been reached.
func (l *ipLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.inflight[ip] >= l.maxPerIP {
		return false
	}

	l.inflight[ip]++
	l.total++
	return true
}

// release undoes one acquire for ip.
func (l *ipLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inflight[ip]--
	l.total--
	if l.inflight[ip] <= 0 {
		delete(l.inflight, ip)
	}
}

// count returns the number of in-flight requests for ip.
func (l *ipLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight[ip]
}
