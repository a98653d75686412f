package testbed

import (
	"github.com/spaghettifunk/vkcube/engine"
	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/math"
	"github.com/spaghettifunk/vkcube/engine/renderer"
)

const (
	minSpeed float64 = 0.25
	maxSpeed float64 = 4.0
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	paused bool
	speed  float64
	// animation time, advanced by the scaled frame delta
	animTime float64
}

// NewTestGame builds the textured cube application from the config file at
// configPath.
func NewTestGame(configPath string) (*TestGame, error) {
	config, err := engine.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				speed: 1.0,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	core.LogInfo("P pauses the cube, UP/DOWN change its speed, R rebuilds the swapchain, ESC quits.")
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)

	if released(core.KEY_P) {
		state.paused = !state.paused
		core.LogDebug("Animation paused: %t", state.paused)
	}
	if released(core.KEY_UP) {
		state.speed = math.Clamp(state.speed*2, minSpeed, maxSpeed)
		core.LogDebug("Animation speed: %.2fx", state.speed)
	}
	if released(core.KEY_DOWN) {
		state.speed = math.Clamp(state.speed/2, minSpeed, maxSpeed)
		core.LogDebug("Animation speed: %.2fx", state.speed)
	}
	if released(core.KEY_F1) {
		fps, frameTime := core.MetricsFrame()
		core.LogInfo("FPS: %5.1f (%4.1fms), swapchain rebuilds: %d", fps, frameTime, core.MetricsRebuilds())
	}

	if !state.paused {
		state.animTime += deltaTime * state.speed
	}
	return nil
}

func (g *TestGame) Render(packet *renderer.RenderPacket, deltaTime float64) error {
	state := g.State.(*gameState)
	packet.DeltaTime = deltaTime
	packet.Elapsed = state.animTime
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogDebug("TestGame shutting down after %.1fs of animation.", state.animTime)
	return nil
}

func released(key core.KeyCode) bool {
	return !core.InputIsKeyDown(key) && core.InputWasKeyDown(key)
}
