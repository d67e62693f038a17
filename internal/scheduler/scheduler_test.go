package scheduler

import (
	"testing"
	"time"

	"github.com/innoad/adsession/clock"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func TestOnceFiresMarginBeforeExpiry(t *testing.T) {
	clk := clock.Fake(t0)
	fired := 0
	o := NewOnce(clk, DefaultMargin, func() { fired++ })

	due := o.ScheduleFrom(10 * time.Minute)
	if want := t0.Add(9 * time.Minute); !due.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, due)
	}

	clk.Advance(9*time.Minute - time.Second)
	if fired != 0 {
		t.Fatal("fired before due")
	}
	clk.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("expected one fire, got %d", fired)
	}
	if _, ok := o.Pending(); ok {
		t.Fatal("nothing should be pending after fire")
	}
}

func TestOnceShortExpiryFiresImmediately(t *testing.T) {
	clk := clock.Fake(t0)
	fired := 0
	o := NewOnce(clk, DefaultMargin, func() { fired++ })

	due := o.ScheduleFrom(30 * time.Second)
	if !due.Equal(t0) {
		t.Fatalf("expected immediate due, got %v", due)
	}
	clk.Advance(0)
	if fired != 1 {
		t.Fatalf("expected immediate fire, got %d", fired)
	}
}

func TestOnceRescheduleNeverDoubleFires(t *testing.T) {
	clk := clock.Fake(t0)
	fired := 0
	o := NewOnce(clk, DefaultMargin, func() { fired++ })

	for i := 0; i < 5; i++ {
		o.ScheduleFrom(5 * time.Minute)
		clk.Advance(time.Minute)
	}
	if clk.PendingCount() != 1 {
		t.Fatalf("expected exactly one pending timer, got %d", clk.PendingCount())
	}
	clk.Advance(10 * time.Minute)
	if fired != 1 {
		t.Fatalf("expected a single fire, got %d", fired)
	}
}

func TestOnceCancel(t *testing.T) {
	clk := clock.Fake(t0)
	fired := false
	o := NewOnce(clk, DefaultMargin, func() { fired = true })

	o.Cancel()
	o.ScheduleFrom(2 * time.Minute)
	o.Cancel()
	o.Cancel()

	clk.Advance(time.Hour)
	if fired {
		t.Fatal("cancelled renewal fired")
	}
}

func TestOnceCallbackMayReschedule(t *testing.T) {
	clk := clock.Fake(t0)
	var o *Once
	fired := 0
	o = NewOnce(clk, DefaultMargin, func() {
		fired++
		o.ScheduleFrom(5 * time.Minute)
	})

	o.ScheduleFrom(5 * time.Minute)
	clk.Advance(4 * time.Minute)
	clk.Advance(4 * time.Minute)
	if fired != 2 {
		t.Fatalf("expected two chained renewals, got %d", fired)
	}
	if _, ok := o.Pending(); !ok {
		t.Fatal("expected a renewal pending after chain")
	}
}

func TestIntervalTicksUntilStopped(t *testing.T) {
	clk := clock.Fake(t0)
	ticks := 0
	iv := NewInterval(clk, time.Minute, func() { ticks++ })

	iv.Start()
	iv.Start()
	for i := 0; i < 3; i++ {
		clk.Advance(time.Minute)
	}
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}

	iv.Stop()
	clk.Advance(10 * time.Minute)
	if ticks != 3 {
		t.Fatalf("ticked after stop: %d", ticks)
	}
	if iv.Running() {
		t.Fatal("expected stopped interval")
	}
}

func TestIntervalStopFromTick(t *testing.T) {
	clk := clock.Fake(t0)
	var iv *Interval
	ticks := 0
	iv = NewInterval(clk, time.Minute, func() {
		ticks++
		iv.Stop()
	})
	iv.Start()

	clk.Advance(time.Minute)
	clk.Advance(time.Minute)
	if ticks != 1 {
		t.Fatalf("expected one tick, got %d", ticks)
	}
	if clk.PendingCount() != 0 {
		t.Fatalf("expected no pending timers, got %d", clk.PendingCount())
	}
}
