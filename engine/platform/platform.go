package platform

import (
	"runtime"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window   *glfw.Window
	onResize func(width, height uint32)
}

func New() *Platform {
	return &Platform{
		Window: nil,
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		return errors.New("glfw reports that vulkan is not supported")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		framebufferSizeCallback(w, width, height)
		if p.onResize != nil {
			p.onResize(clampSize(width), clampSize(height))
		}
	})
	p.Window.SetCloseCallback(closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// FramebufferSize returns the current size of the drawable area in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return clampSize(w), clampSize(h)
}

// OnResize registers fn to run on every framebuffer size change, after the
// resize event was fired.
func (p *Platform) OnResize(fn func(width, height uint32)) {
	p.onResize = fn
}

func clampSize(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// WaitWhileMinimized blocks on window events for as long as the framebuffer
// has a zero dimension, or until the window is asked to close.
func (p *Platform) WaitWhileMinimized() {
	w, h := p.FramebufferSize()
	for (w == 0 || h == 0) && !p.Window.ShouldClose() {
		glfw.WaitEvents()
		w, h = p.FramebufferSize()
	}
}

// RequiredInstanceExtensions lists the instance extensions needed to create a
// surface for this window, already null terminated for the vulkan bindings.
func (p *Platform) RequiredInstanceExtensions() []string {
	exts := p.Window.GetRequiredInstanceExtensions()
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, e+"\x00")
	}
	return out
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "failed to create window surface")
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

// GetInstanceProcAddress is handed to vk.SetGetInstanceProcAddr before vk.Init.
func GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func GetAbsoluteTime() float64 {
	return glfw.GetTime() - startTime
}

func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	core.InputProcessKey(translateKeycode(key), action == glfw.Press)
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{
			WindowWidth:  clampSize(width),
			WindowHeight: clampSize(height),
		},
	})
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_APPLICATION_QUIT,
	})
}

func translateKeycode(key glfw.Key) core.KeyCode {
	switch key {
	case glfw.KeyEscape:
		return core.KEY_ESCAPE
	case glfw.KeyEnter:
		return core.KEY_ENTER
	case glfw.KeyTab:
		return core.KEY_TAB
	case glfw.KeySpace:
		return core.KEY_SPACE
	case glfw.KeyLeft:
		return core.KEY_LEFT
	case glfw.KeyUp:
		return core.KEY_UP
	case glfw.KeyRight:
		return core.KEY_RIGHT
	case glfw.KeyDown:
		return core.KEY_DOWN
	case glfw.KeyP:
		return core.KEY_P
	case glfw.KeyQ:
		return core.KEY_Q
	case glfw.KeyR:
		return core.KEY_R
	case glfw.KeyF1:
		return core.KEY_F1
	}
	return core.KEY_UNKNOWN
}
