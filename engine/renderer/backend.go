package renderer

import (
	"time"

	"github.com/spaghettifunk/vkcube/engine/renderer/vulkan"
)

type RendererBackend interface {
	Initialize() error
	Shutdown() error
	Resized(width, height uint32)
	RequestRebuild(reason string)
	DrawFrame(elapsed time.Duration) error
	Stats() vulkan.FrameStats
}
