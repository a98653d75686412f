package engine

import (
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

const sampleConfig = `
name = "Crate"
start_width = 800
start_height = 600
log_level = "debug"
validation = true
frames_in_flight = 3

[shaders]
vertex = "shaders/bin/cube.vert.spv"
fragment = "/abs/cube.frag.spv"
watch = true

[texture]
path = "textures/crate.png"

[clear]
r = 0.1
a = 1.0

[queues]
compute = true
transfer = false
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "Crate" || cfg.StartWidth != 800 || cfg.StartHeight != 600 {
		t.Fatalf("window config = %+v", cfg)
	}
	if cfg.FramesInFlight != 3 || !cfg.Validation || !cfg.Shaders.Watch {
		t.Fatalf("renderer config = %+v", cfg)
	}
	if cfg.Level() != core.DebugLevel {
		t.Fatalf("level = %v", cfg.Level())
	}
	if cfg.ClearValues() != [4]float32{0.1, 0, 0, 1} {
		t.Fatalf("clear = %v", cfg.ClearValues())
	}
	if cfg.QueueFlags() != vk.QueueFlags(vk.QueueComputeBit) {
		t.Fatalf("queue flags = %v", cfg.QueueFlags())
	}
	// untouched keys keep their defaults
	if cfg.StartPosX != 100 || cfg.StartPosY != 100 {
		t.Fatalf("position = %d,%d", cfg.StartPosX, cfg.StartPosY)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultApplicationConfig()
	if *cfg != *def {
		t.Fatalf("got %+v, want %+v", cfg, def)
	}
	if cfg.QueueFlags() != vk.QueueFlags(vk.QueueTransferBit) {
		t.Fatalf("default queue flags = %v", cfg.QueueFlags())
	}
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero width", "start_width = 0"},
		{"zero frames", "frames_in_flight = 0"},
		{"empty vertex", "[shaders]\nvertex = \"\""},
		{"syntax", "name = "},
		{"wrong type", "start_width = \"wide\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestUnknownLogLevelFallsBack(t *testing.T) {
	cfg := DefaultApplicationConfig()
	cfg.LogLevel = "loud"
	if cfg.Level() != core.InfoLevel {
		t.Fatalf("level = %v", cfg.Level())
	}
}

func TestLoadConfigResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "shaders/bin/cube.vert.spv"); cfg.Shaders.Vertex != want {
		t.Fatalf("vertex = %s, want %s", cfg.Shaders.Vertex, want)
	}
	if cfg.Shaders.Fragment != "/abs/cube.frag.spv" {
		t.Fatalf("fragment = %s", cfg.Shaders.Fragment)
	}
	if want := filepath.Join(dir, "textures/crate.png"); cfg.Texture.Path != want {
		t.Fatalf("texture = %s", cfg.Texture.Path)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
