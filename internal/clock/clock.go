// Package clock abstracts timers so the connection retry logic can be driven without real time.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer already fired or was stopped.
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real schedules callbacks with time.AfterFunc and hands them to post, normally an event loop.
type Real struct {
	post func(func())
}

func NewReal(post func(func())) *Real {
	return &Real{post: post}
}

func (that *Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		that.post(f)
	})
}

// Manual is a Clock that only moves when Advance is called. Callbacks run on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *Manual
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func NewManual() *Manual {
	return &Manual{}
}

// Now is the time elapsed since the clock was created.
func (that *Manual) Now() time.Duration {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *Manual) AfterFunc(d time.Duration, f func()) Timer {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.seq++
	timer := &manualTimer{clock: that, at: that.now + d, seq: that.seq, f: f}
	that.timers = append(that.timers, timer)

	return timer
}

// Pending is the number of timers that have neither fired nor been stopped.
func (that *Manual) Pending() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	count := 0
	for _, timer := range that.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}

	return count
}

// Advance moves the clock forward by d, firing due timers in deadline order. Timers scheduled by a
// callback fire within the same call if they fall inside the window.
func (that *Manual) Advance(d time.Duration) {
	that.mu.Lock()
	target := that.now + d
	that.mu.Unlock()

	for {
		timer := that.nextDue(target)
		if timer == nil {
			break
		}
		timer.f()
	}

	that.mu.Lock()
	that.now = target
	that.mu.Unlock()
}

func (that *Manual) nextDue(target time.Duration) *manualTimer {
	that.mu.Lock()
	defer that.mu.Unlock()

	live := that.timers[:0]
	for _, timer := range that.timers {
		if !timer.stopped && !timer.fired {
			live = append(live, timer)
		}
	}
	that.timers = live

	sort.Slice(that.timers, func(i, j int) bool {
		if that.timers[i].at == that.timers[j].at {
			return that.timers[i].seq < that.timers[j].seq
		}
		return that.timers[i].at < that.timers[j].at
	})

	if len(that.timers) == 0 || that.timers[0].at > target {
		return nil
	}

	timer := that.timers[0]
	timer.fired = true
	that.now = timer.at

	return timer
}

func (that *manualTimer) Stop() bool {
	that.clock.mu.Lock()
	defer that.clock.mu.Unlock()

	if that.stopped || that.fired {
		return false
	}
	that.stopped = true

	return true
}
