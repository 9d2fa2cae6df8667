package dispatch

import (
	"sync"
	"time"
)

// TimerOwner guarantees at most one live timer per key. Scheduling a
// key always cancels any prior timer for that key, and Close cancels
// everything so nothing fires into a torn-down engine.
type TimerOwner struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewTimerOwner returns an empty owner.
func NewTimerOwner() *TimerOwner {
	return &TimerOwner{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d under the given key, replacing any
// prior timer for the key. fn runs on the timer goroutine; callers are
// expected to re-check entity state under their own lock.
func (o *TimerOwner) Schedule(key string, d time.Duration, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if t, ok := o.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		o.mu.Lock()
		if o.closed || o.timers[key] != t {
			// cancelled or replaced between fire and lock
			o.mu.Unlock()
			return
		}
		delete(o.timers, key)
		o.mu.Unlock()
		fn()
	})
	o.timers[key] = t
}

// Cancel stops and removes the timer for the key, if any. It reports
// whether a live timer was cancelled.
func (o *TimerOwner) Cancel(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(o.timers, key)
	return true
}

// Live reports whether a timer is currently armed for the key.
func (o *TimerOwner) Live(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.timers[key]
	return ok
}

// Close cancels all outstanding timers. Further Schedule calls are
// ignored.
func (o *TimerOwner) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for k, t := range o.timers {
		t.Stop()
		delete(o.timers, k)
	}
}
