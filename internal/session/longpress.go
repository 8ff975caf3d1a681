package session

import (
	"sync"
	"time"
)

// DefaultHoldThreshold is how long a press must be held to count as a
// long-press rather than a tap.
const DefaultHoldThreshold = 500 * time.Millisecond

// LongPress distinguishes a short tap (navigate to the cell) from a held
// press (toggle its flag) on navigator cells. The recognizer is
// input-agnostic: the caller maps pointer and touch events onto
// PressStart/PressEnd/PressCancel identically.
type LongPress struct {
	clock  Clock
	hold   time.Duration
	onTap  func(index int)
	onHold func(index int)

	mu     sync.Mutex
	timer  StopTimer
	index  int
	active bool
}

// NewLongPress creates a recognizer. A non-positive hold falls back to
// DefaultHoldThreshold.
func NewLongPress(clock Clock, hold time.Duration, onTap, onHold func(index int)) *LongPress {
	if clock == nil {
		clock = RealClock{}
	}
	if hold <= 0 {
		hold = DefaultHoldThreshold
	}
	return &LongPress{clock: clock, hold: hold, onTap: onTap, onHold: onHold}
}

// PressStart arms the hold timer for a cell. A second press-start while
// one is pending replaces it without firing either action.
func (p *LongPress) PressStart(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active && p.timer != nil {
		p.timer.Stop()
	}
	p.active = true
	p.index = index
	p.timer = p.clock.AfterFunc(p.hold, p.fire)
}

// PressEnd resolves a pending press as a tap. If the hold timer already
// fired, the release is suppressed and nothing further happens.
func (p *LongPress) PressEnd() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.timer.Stop()
	p.active = false
	index := p.index
	p.mu.Unlock()

	if p.onTap != nil {
		p.onTap(index)
	}
}

// PressCancel abandons a pending press without either outcome, e.g. when
// the pointer or touch leaves the cell.
func (p *LongPress) PressCancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.timer.Stop()
	p.active = false
}

func (p *LongPress) fire() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	index := p.index
	p.mu.Unlock()

	if p.onHold != nil {
		p.onHold(index)
	}
}
