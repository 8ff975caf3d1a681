package session

// Countdown is the exam-mode clock. It is driven externally: whoever owns
// the session calls Tick once per second while it should run. Ticks while
// stopped, paused, or after expiry are no-ops.
type Countdown struct {
	remaining int
	running   bool
	expired   bool
}

// Start arms the countdown with a fresh duration, clearing any prior
// expiry. Starting with zero or negative seconds leaves it stopped.
func (c *Countdown) Start(seconds int) {
	c.remaining = seconds
	c.running = seconds > 0
	c.expired = false
}

// Stop halts the countdown and discards the remaining time.
func (c *Countdown) Stop() {
	c.running = false
	c.remaining = 0
}

// Pause suspends ticking without losing the remaining time.
func (c *Countdown) Pause() {
	c.running = false
}

// Resume continues a paused countdown. Resuming an expired or drained
// countdown does nothing.
func (c *Countdown) Resume() {
	if !c.expired && c.remaining > 0 {
		c.running = true
	}
}

// Tick decrements one second. It reports true exactly once, on the tick
// that reaches zero.
func (c *Countdown) Tick() bool {
	if !c.running || c.expired {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		c.expired = true
		return true
	}
	return false
}

// Remaining returns the seconds left, never negative.
func (c *Countdown) Remaining() int { return c.remaining }

// Running reports whether ticks currently count down.
func (c *Countdown) Running() bool { return c.running }

// Expired reports whether the countdown has reached zero.
func (c *Countdown) Expired() bool { return c.expired }
