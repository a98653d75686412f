package vulkan

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/math"
	"github.com/spaghettifunk/vkcube/engine/platform"
)

// SurfaceWindow is the window the renderer presents to.
type SurfaceWindow interface {
	Window
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

// TextureSource decodes an image file into tightly packed RGBA8 pixels.
type TextureSource interface {
	LoadRGBA(path string) (width, height uint32, pixels []byte, err error)
}

type RendererConfig struct {
	ApplicationName string
	Validation      bool
	FramesInFlight  uint32
	// Optional queue capabilities on top of graphics and present.
	Queues vk.QueueFlags

	VertexShader   string
	FragmentShader string
	Shaders        ShaderSource

	TexturePath string
	Textures    TextureSource

	ClearColour [4]float32
}

type VulkanRenderer struct {
	window SurfaceWindow
	config RendererConfig

	instance  *VulkanInstance
	surface   vk.Surface
	device    *VulkanDevice
	swapchain *VulkanSwapchain

	layout    *DescriptorLayout
	geometry  *VulkanGeometry
	texture   *VulkanTexture
	targets   *RenderTargetSet
	pipeline  *CubePipeline
	uniforms  *UniformSet
	scheduler *FrameScheduler

	FrameNumber uint64
}

func New(window SurfaceWindow, config RendererConfig) *VulkanRenderer {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = DefaultFramesInFlight
	}
	return &VulkanRenderer{
		window:  window,
		config:  config,
		surface: vk.NullSurface,
	}
}

func (vr *VulkanRenderer) Initialize() error {
	if err := vr.initialize(); err != nil {
		core.LogError("Vulkan renderer failed to initialize: %s", err)
		vr.Shutdown()
		return err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) initialize() error {
	procAddr := platform.GetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize vk")
	}

	instance, err := NewInstance(vr.config.ApplicationName, vr.window.RequiredInstanceExtensions(), NewValidation(vr.config.Validation))
	if err != nil {
		return err
	}
	vr.instance = instance

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.window.CreateSurface(instance.Handle)
	if err != nil {
		return err
	}
	vr.surface = surface
	core.LogDebug("Vulkan surface created.")

	requirements := DefaultPhysicalDeviceRequirements()
	requirements.Queues |= vr.config.Queues
	info, families, err := SelectPhysicalDevice(instance.Handle, surface, requirements)
	if err != nil {
		return err
	}
	device, err := DeviceCreate(info, families, nil)
	if err != nil {
		return err
	}
	vr.device = device

	if vr.layout, err = NewDescriptorLayout(device); err != nil {
		return err
	}
	if vr.geometry, err = UploadGeometry(device, math.GenerateCube(1, 1, 1, 1, 1)); err != nil {
		return err
	}
	width, height, pixels, err := vr.config.Textures.LoadRGBA(vr.config.TexturePath)
	if err != nil {
		return err
	}
	if vr.texture, err = TextureCreate(device, width, height, pixels); err != nil {
		return err
	}

	vr.swapchain = NewVulkanSwapchain(device, surface)
	vr.targets = NewRenderTargetSet(device, vr.config.ClearColour)
	vr.pipeline = NewCubePipeline(device, vr.targets, vr.layout, vr.config.Shaders, vr.config.VertexShader, vr.config.FragmentShader)
	vr.uniforms = NewUniformSet(device, vr.layout, vr.texture)

	scheduler, err := NewFrameScheduler(FrameSchedulerConfig{
		Device:         device,
		Swapchain:      vr.swapchain,
		Window:         vr.window,
		Dependents:     []SwapchainDependent{vr.targets, vr.pipeline, vr.uniforms},
		Recorder:       NewCubeRecorder(device, vr.targets, vr.pipeline, vr.uniforms, vr.geometry),
		Updater:        vr.uniforms,
		FramesInFlight: vr.config.FramesInFlight,
	})
	if err != nil {
		return err
	}
	vr.scheduler = scheduler

	// A zero sized window at startup leaves the build to the first frame.
	if err := scheduler.Build(); err != nil && !errors.Is(err, core.ErrSwapchainBooting) {
		return err
	}
	return nil
}

func (vr *VulkanRenderer) DrawFrame(elapsed time.Duration) error {
	if err := vr.scheduler.DrawFrame(elapsed); err != nil {
		return err
	}
	vr.FrameNumber++
	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.RequestRebuild(fmt.Sprintf("resized to %dx%d", width, height))
}

// RequestRebuild is safe to call from any goroutine.
func (vr *VulkanRenderer) RequestRebuild(reason string) {
	if vr.scheduler != nil {
		vr.scheduler.RequestRebuild(reason)
	}
}

func (vr *VulkanRenderer) Stats() FrameStats {
	if vr.scheduler == nil {
		return FrameStats{}
	}
	return vr.scheduler.Stats()
}

// Shutdown destroys in the opposite order of creation. It tolerates a
// partially initialized renderer.
func (vr *VulkanRenderer) Shutdown() error {
	if vr.scheduler != nil {
		vr.scheduler.Destroy()
		vr.scheduler = nil
	} else if vr.device != nil {
		if err := vr.device.WaitIdle(); err != nil {
			core.LogError("failed to wait for the device: %s", err)
		}
	}
	if vr.device != nil {
		if vr.texture != nil {
			vr.texture.Destroy(vr.device)
			vr.texture = nil
		}
		if vr.geometry != nil {
			vr.geometry.Destroy(vr.device)
			vr.geometry = nil
		}
		if vr.layout != nil {
			vr.layout.Destroy(vr.device)
			vr.layout = nil
		}
		vr.device.Destroy()
		vr.device = nil
	}
	if vr.instance != nil {
		if vr.surface != vk.NullSurface {
			core.LogDebug("Destroying Vulkan surface...")
			vk.DestroySurface(vr.instance.Handle, vr.surface, nil)
			vr.surface = vk.NullSurface
		}
		core.LogDebug("Destroying Vulkan instance...")
		vr.instance.Destroy()
		vr.instance = nil
	}
	return nil
}
