package observability

import (
	"strconv"
	"sync"
	"time"
)

type requestStats struct {
	count         int64
	totalDuration time.Duration
}

// Metrics provides basic in-memory counters keyed by path, method and
// outcome. Enough for introspection without an external metrics backend.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]*requestStats
	errors   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]*requestStats),
		errors:   make(map[string]int64),
	}
}

// RecordRequest accumulates count and latency for a request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requests[key]
	if !ok {
		stats = &requestStats{}
		m.requests[key] = stats
	}
	stats.count++
	stats.totalDuration += duration
}

// RecordError increments the error counter for a request outcome.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[path+"|"+method+"|"+code]++
}

// ErrorCount returns the number of errors recorded for a path, method and
// error code combination.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[path+"|"+method+"|"+code]
}
