package core

import (
	"testing"
	"time"
)

func TestClockLifecycle(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatal("a clock that was never started must not advance")
	}

	c.Start()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	first := c.Elapsed()
	if first <= 0 {
		t.Fatalf("elapsed = %v, want > 0", first)
	}

	c.Stop()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	if c.Elapsed() != first {
		t.Fatal("a stopped clock must keep its elapsed time")
	}
}
