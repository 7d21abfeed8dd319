package utils

import (
	"sync"
	"time"
)

// Watch measures wall time; it is safe to read while another goroutine restarts it.
type Watch struct {
	mu        sync.RWMutex
	startTime time.Time
}

func (w *Watch) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.startTime = time.Now()
}

func (w *Watch) Elapsed() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return time.Since(w.startTime)
}
