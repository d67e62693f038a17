package scheduler

import (
	"sync"
	"time"

	"github.com/innoad/adsession/clock"
)

// Interval calls tick every period between Start and Stop. Each tick is
// re-armed after the previous one returns, so ticks never overlap.
type Interval struct {
	clock  clock.Clock
	period time.Duration
	tick   func()

	mu      sync.Mutex
	timer   *clock.Timer
	gen     uint64
	running bool
}

// NewInterval creates a stopped Interval.
func NewInterval(clk clock.Clock, period time.Duration, tick func()) *Interval {
	if clk == nil {
		clk = clock.Real()
	}
	return &Interval{clock: clk, period: period, tick: tick}
}

// Start begins ticking. Starting a running Interval is a no-op.
func (iv *Interval) Start() {
	if iv.period <= 0 {
		return
	}
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.running {
		return
	}
	iv.running = true
	iv.gen++
	iv.armLocked(iv.gen)
}

// Stop halts ticking. Idempotent.
func (iv *Interval) Stop() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.running = false
	iv.gen++
	iv.timer.Stop()
	iv.timer = nil
}

// Running reports whether the Interval is started.
func (iv *Interval) Running() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.running
}

func (iv *Interval) armLocked(gen uint64) {
	iv.timer = iv.clock.AfterFunc(iv.period, func() { iv.run(gen) })
}

func (iv *Interval) run(gen uint64) {
	iv.mu.Lock()
	if gen != iv.gen || !iv.running {
		iv.mu.Unlock()
		return
	}
	iv.timer = nil
	iv.mu.Unlock()

	if iv.tick != nil {
		iv.tick()
	}

	iv.mu.Lock()
	defer iv.mu.Unlock()
	if gen == iv.gen && iv.running {
		iv.armLocked(gen)
	}
}
