package engine

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/renderer/vulkan"
)

type ShaderConfig struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	// Watch reloads the pipeline when a compiled module changes on disk.
	Watch bool `toml:"watch"`
}

type TextureConfig struct {
	Path  string `toml:"path"`
	FlipY bool   `toml:"flip_y"`
}

type ClearColour struct {
	R float32 `toml:"r"`
	G float32 `toml:"g"`
	B float32 `toml:"b"`
	A float32 `toml:"a"`
}

type QueueConfig struct {
	Compute  bool `toml:"compute"`
	Transfer bool `toml:"transfer"`
}

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name           string `toml:"name"`
	LogLevel       string `toml:"log_level"`
	Validation     bool   `toml:"validation"`
	FramesInFlight uint32 `toml:"frames_in_flight"`

	Shaders ShaderConfig  `toml:"shaders"`
	Texture TextureConfig `toml:"texture"`
	Clear   ClearColour   `toml:"clear"`
	Queues  QueueConfig   `toml:"queues"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:      100,
		StartPosY:      100,
		StartWidth:     1280,
		StartHeight:    720,
		Name:           "VkCube",
		LogLevel:       "info",
		FramesInFlight: vulkan.DefaultFramesInFlight,
		Shaders: ShaderConfig{
			Vertex:   "shaders/bin/cube.vert.spv",
			Fragment: "shaders/bin/cube.frag.spv",
		},
		Clear: ClearColour{A: 1},
		Queues: QueueConfig{
			Transfer: true,
		},
	}
}

// LoadConfig decodes the TOML file at path over the defaults. Relative shader
// and texture paths are resolved against the directory of the file.
func LoadConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config '%s'", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config '%s'", path)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func ParseConfig(data []byte) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(err, "line %d column %d", row, col)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.StartWidth, c.StartHeight)
	}
	if c.FramesInFlight < 1 {
		return errors.New("frames_in_flight must be at least 1")
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("both vertex and fragment shader paths are required")
	}
	return nil
}

// Level returns the configured log level. Unknown names fall back to info.
func (c *ApplicationConfig) Level() core.LogLevel {
	level, ok := core.ParseLogLevel(c.LogLevel)
	if !ok {
		core.LogWarn("Unknown log level '%s', using info.", c.LogLevel)
	}
	return level
}

// QueueFlags returns the optional queue capabilities to request.
func (c *ApplicationConfig) QueueFlags() vk.QueueFlags {
	var flags vk.QueueFlags
	if c.Queues.Compute {
		flags |= vk.QueueFlags(vk.QueueComputeBit)
	}
	if c.Queues.Transfer {
		flags |= vk.QueueFlags(vk.QueueTransferBit)
	}
	return flags
}

func (c *ApplicationConfig) ClearValues() [4]float32 {
	return [4]float32{c.Clear.R, c.Clear.G, c.Clear.B, c.Clear.A}
}

func (c *ApplicationConfig) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Shaders.Vertex = resolve(c.Shaders.Vertex)
	c.Shaders.Fragment = resolve(c.Shaders.Fragment)
	c.Texture.Path = resolve(c.Texture.Path)
}
