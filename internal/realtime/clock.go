package realtime

import (
	"sync"
	"time"
)

// Timer is a pending delayed call.
type Timer interface {
	// Stop prevents the call from running. It reports whether the call was
	// still pending.
	Stop() bool
}

// Clock schedules delayed calls. SystemClock is backed by the time package;
// tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns a Clock that uses real time.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs at most one delayed action per key. Scheduling a key again
// before its action fires restarts the quiet window, and Cancel drops the
// pending action without running it.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingCall
}

type pendingCall struct {
	timer Timer
	gen   uint64
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Debouncer{
		clock:   clock,
		delay:   delay,
		pending: make(map[string]*pendingCall),
	}
}

// Schedule (re)arms the action for key.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.seq++
	gen := d.seq
	call := &pendingCall{gen: gen}
	call.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cur, ok := d.pending[key]
		// A timer that lost a race with Schedule or Cancel must not run.
		if !ok || cur.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
	d.pending[key] = call
}

// Cancel drops the pending action for key and reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether key has an armed action.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}
