package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func TestDetermineAssetKind(t *testing.T) {
	tests := []struct {
		path string
		want AssetKind
	}{
		{"shaders/cube.vert.spv", AssetKindShader},
		{"textures/crate.png", AssetKindTexture},
		{"textures/crate.JPG", AssetKindTexture},
		{"textures/crate.webp", AssetKindTexture},
		{"shaders/cube.vert", AssetKindNone},
		{"config.toml", AssetKindNone},
		{"noext", AssetKindNone},
	}
	for _, tt := range tests {
		if got := DetermineAssetKind(tt.path); got != tt.want {
			t.Errorf("DetermineAssetKind(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func waitFor(t *testing.T, events <-chan string, want string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got, ok := <-events:
			if !ok {
				t.Fatal("events closed")
			}
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("no event for %s", want)
		}
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "cube.frag.spv")
	if err := os.WriteFile(existing, []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if n := len(w.Assets()); n != 1 {
		t.Fatalf("expected the existing module to be indexed, got %d assets", n)
	}

	if err := os.WriteFile(existing, []byte{2}, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, w.Events(), existing)

	sub := filepath.Join(dir, "textures")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// give the watcher time to pick the new directory up
	time.Sleep(100 * time.Millisecond)
	tex := filepath.Join(sub, "crate.png")
	if err := os.WriteFile(tex, []byte{3}, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, w.Events(), tex)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	shader := filepath.Join(dir, "cube.vert.spv")
	if err := os.WriteFile(shader, []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Events():
		if got != shader {
			t.Fatalf("unexpected event for %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the shader module")
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Fatal("events should be closed")
	}
	if err := w.Add(t.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("expected ErrWatcherClosed, got %v", err)
	}
}

func TestNewWatcherMissingPath(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}
