package session

import (
	"sync"
	"time"
)

// Clock is the session clock: a monotonic tick counter advanced once per
// interval, bounded by the session duration. Current time is derived from
// the counter, never from wall-clock sampling, so drift cannot skip a
// second.
type Clock struct {
	mu       sync.Mutex
	interval time.Duration
	duration int // Seconds; ticking stops when the counter reaches it
	ticks    int
	running  bool
	stop     chan struct{}

	onTick     func(second int)
	onComplete func()
}

// NewClock creates a stopped clock. onTick fires once per elapsed second
// with the new counter value; onComplete fires when the counter reaches
// the duration. Both run outside the clock's lock.
func NewClock(durationSeconds int, interval time.Duration, onTick func(int), onComplete func()) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		interval:   interval,
		duration:   durationSeconds,
		onTick:     onTick,
		onComplete: onComplete,
	}
}

// Start begins ticking from the current counter value. Starting a running
// or already-complete clock is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || (c.duration > 0 && c.ticks >= c.duration) {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	go c.run(c.stop)
}

func (c *Clock) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.running {
				c.mu.Unlock()
				return
			}
			c.ticks++
			second := c.ticks
			complete := c.duration > 0 && second >= c.duration
			if complete {
				c.running = false
			}
			onTick, onComplete := c.onTick, c.onComplete
			c.mu.Unlock()

			if onTick != nil {
				onTick(second)
			}
			if complete {
				if onComplete != nil {
					onComplete()
				}
				return
			}
		}
	}
}

// Pause freezes the counter without clearing it.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked()
}

func (c *Clock) pauseLocked() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stop)
}

// Reset stops the clock and returns the counter to zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked()
	c.ticks = 0
}

// Seconds returns the current counter value.
func (c *Clock) Seconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Duration returns the configured duration in seconds.
func (c *Clock) Duration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetDuration changes the bound mid-session. Shortening below the current
// counter stops a running clock; cues whose offsets fall outside the new
// bound simply never fire.
func (c *Clock) SetDuration(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = seconds
	if c.running && c.duration > 0 && c.ticks >= c.duration {
		c.pauseLocked()
	}
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
