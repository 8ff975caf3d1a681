package session

import "testing"

func TestCountdownTick(t *testing.T) {
	var c Countdown
	c.Start(3)

	if c.Remaining() != 3 || !c.Running() {
		t.Fatalf("after start: remaining=%d running=%v", c.Remaining(), c.Running())
	}

	// Successive ticks strictly decrease remaining until zero.
	if c.Tick() {
		t.Error("tick at 3s should not expire")
	}
	if c.Remaining() != 2 {
		t.Errorf("expected 2s, got %d", c.Remaining())
	}
	if c.Tick() {
		t.Error("tick at 2s should not expire")
	}
	if !c.Tick() {
		t.Error("tick at 1s should expire")
	}
	if !c.Expired() || c.Remaining() != 0 {
		t.Errorf("expected expired at 0, got expired=%v remaining=%d", c.Expired(), c.Remaining())
	}

	// Further ticks are no-ops and never signal expiry again.
	if c.Tick() {
		t.Error("tick after expiry signalled again")
	}
	if c.Remaining() != 0 {
		t.Errorf("remaining went negative: %d", c.Remaining())
	}
}

func TestCountdownPauseResume(t *testing.T) {
	var c Countdown
	c.Start(10)
	c.Tick()
	c.Pause()

	if c.Tick() {
		t.Error("tick while paused expired")
	}
	if c.Remaining() != 9 {
		t.Errorf("tick while paused changed remaining to %d", c.Remaining())
	}

	c.Resume()
	c.Tick()
	if c.Remaining() != 8 {
		t.Errorf("expected 8 after resume+tick, got %d", c.Remaining())
	}
}

func TestCountdownStopAndRestart(t *testing.T) {
	var c Countdown
	c.Start(5)
	c.Tick()
	c.Stop()

	if c.Running() || c.Remaining() != 0 {
		t.Errorf("after stop: running=%v remaining=%d", c.Running(), c.Remaining())
	}

	// Restarting arms a fresh duration and clears prior expiry.
	c.Start(1)
	c.Tick()
	if !c.Expired() {
		t.Fatal("expected expiry")
	}
	c.Start(2)
	if c.Expired() || c.Remaining() != 2 {
		t.Errorf("restart did not clear expiry: expired=%v remaining=%d", c.Expired(), c.Remaining())
	}
}

func TestCountdownZeroDuration(t *testing.T) {
	var c Countdown
	c.Start(0)
	if c.Running() {
		t.Error("zero-duration countdown should not run")
	}
	if c.Tick() {
		t.Error("tick on stopped countdown expired")
	}
}

func TestCountdownResumeAfterExpiry(t *testing.T) {
	var c Countdown
	c.Start(1)
	c.Tick()
	c.Resume()
	if c.Running() {
		t.Error("resume revived an expired countdown")
	}
}
