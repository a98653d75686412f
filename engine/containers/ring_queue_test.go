package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatal(err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if v, _ := rq.Peek(); v != 1 {
		t.Fatalf("peek = %d", v)
	}
	for want := 1; want <= 3; want++ {
		v, err := rq.Dequeue()
		if err != nil || v != want {
			t.Fatalf("dequeue = %d, %v; want %d", v, err, want)
		}
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueuePushOverwritesOldest(t *testing.T) {
	rq := NewRingQueue[string](2)
	rq.Push("a")
	rq.Push("b")
	rq.Push("c")

	var got []string
	rq.Each(func(s string) { got = append(got, s) })
	if rq.Len() != 2 || len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("contents = %v", got)
	}
}

func TestRingQueueMinimumSize(t *testing.T) {
	rq := NewRingQueue[int](0)
	rq.Push(1)
	rq.Push(2)
	if v, _ := rq.Peek(); rq.Len() != 1 || v != 2 {
		t.Fatalf("len %d, front %d", rq.Len(), v)
	}
}
