package dispatch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerOwnerFires(t *testing.T) {
	o := NewTimerOwner()
	defer o.Close()
	fired := make(chan struct{})
	o.Schedule("k", time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if o.Live("k") {
		t.Error("fired timer still reported live")
	}
}

func TestTimerOwnerScheduleReplaces(t *testing.T) {
	o := NewTimerOwner()
	defer o.Close()
	var first, second atomic.Int32
	o.Schedule("k", 5*time.Millisecond, func() { first.Add(1) })
	o.Schedule("k", 5*time.Millisecond, func() { second.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if first.Load() != 0 {
		t.Error("replaced timer fired")
	}
	if second.Load() != 1 {
		t.Errorf("replacement fired %d times, want 1", second.Load())
	}
}

func TestTimerOwnerCancel(t *testing.T) {
	o := NewTimerOwner()
	defer o.Close()
	var fired atomic.Int32
	o.Schedule("k", 5*time.Millisecond, func() { fired.Add(1) })
	if !o.Cancel("k") {
		t.Fatal("Cancel returned false for a live timer")
	}
	if o.Cancel("k") {
		t.Error("second Cancel returned true")
	}
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled timer fired")
	}
}

func TestTimerOwnerCloseStopsEverything(t *testing.T) {
	o := NewTimerOwner()
	var fired atomic.Int32
	o.Schedule("a", 5*time.Millisecond, func() { fired.Add(1) })
	o.Schedule("b", 5*time.Millisecond, func() { fired.Add(1) })
	o.Close()
	o.Schedule("c", time.Millisecond, func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("%d timers fired after Close", fired.Load())
	}
}

func TestTimerOwnerIndependentKeys(t *testing.T) {
	o := NewTimerOwner()
	defer o.Close()
	var a, b atomic.Int32
	o.Schedule("a", time.Millisecond, func() { a.Add(1) })
	o.Schedule("b", time.Millisecond, func() { b.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("fired a=%d b=%d, want 1 and 1", a.Load(), b.Load())
	}
}
