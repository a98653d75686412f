package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/renderer/vulkan"
)

// RendererType names a graphics API. Only Vulkan has a backend; NewBackend
// rejects the others.
type RendererType uint8

const (
	Vulkan RendererType = iota
	DirectX
	Metal
	OpenGL
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case DirectX:
		return "directx"
	case Metal:
		return "metal"
	case OpenGL:
		return "opengl"
	}
	return "unknown"
}

// RenderPacket carries what the frontend needs to draw one frame.
type RenderPacket struct {
	DeltaTime float64
	// Elapsed drives the cube animation.
	Elapsed float64
}

type Renderer struct {
	backend    RendererBackend
	frameCount uint64
}

// NewBackend builds the backend for rendererType. Only Vulkan is available.
func NewBackend(rendererType RendererType, window vulkan.SurfaceWindow, config vulkan.RendererConfig) (RendererBackend, error) {
	switch rendererType {
	case Vulkan:
		return vulkan.New(window, config), nil
	}
	return nil, errors.Newf("renderer backend %s is not supported", rendererType)
}

func New(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
	}
}

func (r *Renderer) Initialize() error {
	return r.backend.Initialize()
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) {
	r.backend.Resized(width, height)
}

func (r *Renderer) RequestRebuild(reason string) {
	r.backend.RequestRebuild(reason)
}

func (r *Renderer) DrawFrame(renderPacket *RenderPacket) error {
	if err := r.backend.DrawFrame(secondsToDuration(renderPacket.Elapsed)); err != nil {
		core.LogError("DrawFrame failed. Application shutting down...")
		return err
	}
	r.frameCount++
	return nil
}

func (r *Renderer) FrameCount() uint64 {
	return r.frameCount
}

func (r *Renderer) Stats() vulkan.FrameStats {
	return r.backend.Stats()
}
