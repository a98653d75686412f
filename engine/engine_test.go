package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkcube/engine/core"
)

func newTestEngine(t *testing.T, g *Game) *Engine {
	t.Helper()
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	e, err := New(g)
	if err != nil {
		t.Fatal(err)
	}
	if !core.EventSystemInitialize() {
		t.Fatal("event system already initialized")
	}
	t.Cleanup(func() { core.EventSystemShutdown() })
	return e
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected an error without a game")
	}
	if _, err := New(&Game{}); err == nil {
		t.Fatal("expected an error without a config")
	}
	cfg := DefaultApplicationConfig()
	cfg.FramesInFlight = 0
	if _, err := New(&Game{ApplicationConfig: cfg}); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestResizeSuspendsWhileMinimized(t *testing.T) {
	var resized [][2]uint32
	e := newTestEngine(t, &Game{
		FnOnResize: func(w, h uint32) error {
			resized = append(resized, [2]uint32{w, h})
			return nil
		},
	})

	fire := func(w, h uint32) {
		e.onResized(core.EventContext{
			Type: core.EVENT_CODE_RESIZED,
			Data: &core.SystemEvent{WindowWidth: w, WindowHeight: h},
		})
	}

	fire(0, 0)
	if !e.isSuspended {
		t.Fatal("a zero sized window must suspend the engine")
	}
	fire(640, 480)
	if e.isSuspended {
		t.Fatal("a restored window must resume the engine")
	}
	// same size is not a resize
	fire(640, 480)

	if len(resized) != 1 || resized[0] != [2]uint32{640, 480} {
		t.Fatalf("game saw resizes %v", resized)
	}
	if w, h := e.GetFramebufferSize(); w != 640 || h != 480 {
		t.Fatalf("framebuffer size = %dx%d", w, h)
	}
}

func TestEscapeQuits(t *testing.T) {
	e := newTestEngine(t, &Game{})
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	e.isRunning.Store(true)

	handled := e.onKey(core.EventContext{
		Type: core.EVENT_CODE_KEY_PRESSED,
		Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE},
	})
	if !handled {
		t.Fatal("escape should be handled")
	}
	if e.isRunning.Load() {
		t.Fatal("escape should stop the main loop")
	}
}

func TestStop(t *testing.T) {
	e := newTestEngine(t, &Game{})
	e.isRunning.Store(true)
	e.Stop()
	if e.isRunning.Load() {
		t.Fatal("Stop should clear the running flag")
	}
}

func TestRunRequiresInitialize(t *testing.T) {
	e := newTestEngine(t, &Game{})
	if err := e.Run(); err == nil {
		t.Fatal("expected an error running an uninitialized engine")
	}
}

func TestWatchPaths(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	if err := os.Mkdir(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultApplicationConfig()
	cfg.Shaders.Vertex = filepath.Join(bin, "cube.vert.spv")
	cfg.Shaders.Fragment = filepath.Join(bin, "cube.frag.spv")

	paths := watchPaths(cfg)
	if len(paths) != 1 || paths[0] != bin {
		t.Fatalf("paths = %v", paths)
	}

	cfg.Shaders.Fragment = filepath.Join(dir, "missing", "cube.frag.spv")
	if paths := watchPaths(cfg); len(paths) != 1 {
		t.Fatalf("missing directories must be skipped, got %v", paths)
	}
}
