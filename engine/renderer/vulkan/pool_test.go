package vulkan

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestSafeQueueCallSerializesPerFamily(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		counter sync.Mutex
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeQueueCall(0, func() error {
				counter.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				counter.Unlock()

				counter.Lock()
				active--
				counter.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("at most one call may hold a queue, saw %d", maxSeen)
	}
}

func TestSafeQueueCallUnknownFamily(t *testing.T) {
	pool := NewVulkanLockPool()
	want := errors.New("boom")
	if err := pool.SafeQueueCall(7, func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected the callback error, got %v", err)
	}
}
