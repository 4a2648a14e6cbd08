// Package watch notifies about changes to a user's stored documents.
package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects keys and flushes them in one callback once the window
// passes without new keys.
type Debouncer struct {
	window time.Duration
	flush  func(keys []string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

func NewDebouncer(window time.Duration, flush func(keys []string)) *Debouncer {
	return &Debouncer{
		window:  window,
		flush:   flush,
		pending: make(map[string]struct{}),
	}
}

// Add records a key and restarts the window.
func (d *Debouncer) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[key] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Stop drops pending keys and disables the debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]struct{})
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(keys)
	d.flush(keys)
}
