package engine

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"

	"github.com/spaghettifunk/vkcube/engine/assets"
	"github.com/spaghettifunk/vkcube/engine/assets/loaders"
	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/platform"
	"github.com/spaghettifunk/vkcube/engine/renderer"
	"github.com/spaghettifunk/vkcube/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const statsInterval = 5 * time.Second

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	renderer     *renderer.Renderer
	watcher      *assets.Watcher
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     time.Duration
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("a game with an application config is required")
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     platform.New(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return errors.Newf("engine cannot be initialized in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	core.SetLogLevel(cfg.Level())

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, e.onAssetChanged)

	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	backend, err := renderer.NewBackend(renderer.Vulkan, e.platform, vulkan.RendererConfig{
		ApplicationName: cfg.Name,
		Validation:      cfg.Validation,
		FramesInFlight:  cfg.FramesInFlight,
		Queues:          cfg.QueueFlags(),
		VertexShader:    cfg.Shaders.Vertex,
		FragmentShader:  cfg.Shaders.Fragment,
		Shaders:         &loaders.ShaderLoader{},
		TexturePath:     cfg.Texture.Path,
		Textures:        &loaders.TextureLoader{FlipY: cfg.Texture.FlipY},
		ClearColour:     cfg.ClearValues(),
	})
	if err != nil {
		return err
	}
	e.renderer = renderer.New(backend)
	if err := e.renderer.Initialize(); err != nil {
		return err
	}
	e.platform.OnResize(e.renderer.OnResize)

	if cfg.Shaders.Watch {
		w, err := assets.NewWatcher(watchPaths(cfg)...)
		if err != nil {
			core.LogWarn("Asset hot reload disabled: %s", err)
		} else {
			e.watcher = w
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// watchPaths lists the existing directories holding the shader modules.
func watchPaths(cfg *ApplicationConfig) []string {
	seen := map[string]bool{}
	var paths []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		if _, err := os.Stat(p); err != nil {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}
	add(filepath.Dir(cfg.Shaders.Vertex))
	add(filepath.Dir(cfg.Shaders.Fragment))
	return paths
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()
	lastStats := e.lastTime

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		e.forwardAssetChanges()

		if e.isSuspended {
			e.platform.WaitWhileMinimized()
			continue
		}

		frameStart := hrtime.Now()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				return err
			}
		}

		packet := &renderer.RenderPacket{
			DeltaTime: delta,
			Elapsed:   currentTime.Seconds(),
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(packet, delta); err != nil {
				core.LogError("Game render failed, shutting down: %s", err)
				return err
			}
		}

		if err := e.renderer.DrawFrame(packet); err != nil {
			core.LogError("Frame failed, shutting down: %s", err)
			return err
		}

		core.MetricsUpdate(hrtime.Since(frameStart))
		if currentTime-lastStats >= statsInterval {
			fps, frameMS := core.MetricsFrame()
			stats := e.renderer.Stats()
			core.Logger().Debug("frame stats",
				"fps", fps,
				"frame_ms", frameMS,
				"frames", stats.FramesDrawn,
				"rebuilds", stats.Rebuilds,
			)
			lastStats = currentTime
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		core.InputUpdate()

		e.lastTime = currentTime
	}

	return nil
}

// Stop ends the main loop after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs error
	if e.gameInstance.FnShutdown != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	if e.watcher != nil {
		errs = errors.CombineErrors(errs, e.watcher.Close())
		e.watcher = nil
	}
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
		e.renderer = nil
	}
	errs = errors.CombineErrors(errs, core.EventSystemShutdown())
	errs = errors.CombineErrors(errs, core.InputShutdown())
	errs = errors.CombineErrors(errs, e.platform.Shutdown())
	return errs
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) forwardAssetChanges() {
	if e.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-e.watcher.Events():
			if !ok {
				e.watcher = nil
				return
			}
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_ASSET_CHANGED,
				Data: &core.AssetEvent{Path: path},
			})
		default:
			return
		}
	}
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	switch ke.KeyCode {
	case core.KEY_ESCAPE, core.KEY_Q:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
		return true
	case core.KEY_R:
		if e.renderer != nil {
			e.renderer.RequestRebuild("manual")
		}
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
		}
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return false
}

func (e *Engine) onAssetChanged(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	core.LogInfo("Asset '%s' changed, rebuilding.", ae.Path)
	if e.renderer != nil {
		e.renderer.RequestRebuild("asset changed: " + filepath.Base(ae.Path))
	}
	return true
}
