package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vkcube/engine/renderer/vulkan"
)

type fakeBackend struct {
	draws    []time.Duration
	rebuilds []string
	resizes  int
	drawErr  error
}

func (f *fakeBackend) Initialize() error { return nil }

func (f *fakeBackend) Shutdown() error { return nil }

func (f *fakeBackend) Resized(width, height uint32) { f.resizes++ }

func (f *fakeBackend) RequestRebuild(reason string) { f.rebuilds = append(f.rebuilds, reason) }

func (f *fakeBackend) DrawFrame(elapsed time.Duration) error {
	if f.drawErr != nil {
		return f.drawErr
	}
	f.draws = append(f.draws, elapsed)
	return nil
}

func (f *fakeBackend) Stats() vulkan.FrameStats {
	return vulkan.FrameStats{FramesDrawn: uint64(len(f.draws))}
}

func TestDrawFrameForwardsElapsed(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend)

	if err := r.DrawFrame(&RenderPacket{Elapsed: 1.5}); err != nil {
		t.Fatal(err)
	}
	if len(backend.draws) != 1 || backend.draws[0] != 1500*time.Millisecond {
		t.Fatalf("draws = %v", backend.draws)
	}
	if r.FrameCount() != 1 || r.Stats().FramesDrawn != 1 {
		t.Fatal("frame not counted")
	}
}

func TestDrawFrameErrorIsNotCounted(t *testing.T) {
	backend := &fakeBackend{drawErr: errors.New("device lost")}
	r := New(backend)
	if err := r.DrawFrame(&RenderPacket{}); err == nil {
		t.Fatal("expected the backend error")
	}
	if r.FrameCount() != 0 {
		t.Fatal("failed frames must not be counted")
	}
}

func TestRebuildRequestsReachBackend(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend)
	r.OnResize(640, 480)
	r.RequestRebuild("shader changed")
	if backend.resizes != 1 || len(backend.rebuilds) != 1 {
		t.Fatalf("resizes=%d rebuilds=%v", backend.resizes, backend.rebuilds)
	}
}

func TestNewBackendRejectsUnsupported(t *testing.T) {
	for _, rt := range []RendererType{DirectX, Metal, OpenGL, RendererType(42)} {
		t.Run(rt.String(), func(t *testing.T) {
			backend, err := NewBackend(rt, nil, vulkan.RendererConfig{})
			if err == nil {
				t.Fatal("expected an error for an unsupported backend")
			}
			if backend != nil {
				t.Fatalf("expected no backend, got %T", backend)
			}
			if !strings.Contains(err.Error(), rt.String()) {
				t.Errorf("error %q does not name the backend", err)
			}
		})
	}
}

func TestSecondsToDuration(t *testing.T) {
	if secondsToDuration(-1) != 0 || secondsToDuration(0.25) != 250*time.Millisecond {
		t.Fatal("unexpected conversion")
	}
}
