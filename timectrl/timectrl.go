package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for reading simulation time. Components that
// need the current sim time depend on this abstraction rather than the
// concrete controller, enabling deterministic tests with a fake clock.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances one tick per wall-clock tick interval.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still
	// stepping by Tick, for headless runs.
	Accelerated
)

// TimeController drives simulation time and notifies registered
// listeners once per tick with the new sim time and the tick delta.
// It implements SimClock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	listeners   []func(simTime time.Time, dt time.Duration)

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewTimeController constructs a controller positioned at start.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		stopped:     make(chan struct{}),
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// AddListener registers a callback invoked on every tick. Listeners
// must be registered before Start; they run on the controller's
// goroutine in registration order.
func (tc *TimeController) AddListener(fn func(simTime time.Time, dt time.Duration)) {
	tc.listeners = append(tc.listeners, fn)
}

// Advance manually steps simulation time by dt and fires listeners.
// Used by tests and the headless runner instead of Start.
func (tc *TimeController) Advance(dt time.Duration) {
	tc.mu.Lock()
	tc.currentTime = tc.currentTime.Add(dt)
	simTime := tc.currentTime
	tc.mu.Unlock()

	for _, fn := range tc.listeners {
		fn(simTime, dt)
	}
}

// Stop aborts a running controller. Safe to call multiple times.
func (tc *TimeController) Stop() {
	tc.stopOnce.Do(func() { close(tc.stopped) })
}

// Start runs the controller on its own goroutine for the given
// duration (0 means until Stop). The returned channel closes when the
// controller finishes.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var ticker *time.Ticker
		if tc.Mode == RealTime {
			ticker = time.NewTicker(tc.Tick)
			defer ticker.Stop()
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticker != nil {
				select {
				case <-ticker.C:
				case <-tc.stopped:
					return
				}
			} else {
				select {
				case <-tc.stopped:
					return
				default:
				}
			}

			tc.Advance(tc.Tick)
			elapsed += tc.Tick
		}
	}()
	return done
}
