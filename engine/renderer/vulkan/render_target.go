package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

// RenderTargetSet is the main render pass, the depth attachment and one
// framebuffer per swapchain view. All of it is derived from the swapchain's
// format and extent.
type RenderTargetSet struct {
	device *VulkanDevice
	clear  [4]float32

	Renderpass   *VulkanRenderpass
	Depth        *VulkanImage
	Framebuffers []*VulkanFramebuffer
	Extent       vk.Extent2D
}

func NewRenderTargetSet(device *VulkanDevice, clear [4]float32) *RenderTargetSet {
	return &RenderTargetSet{
		device: device,
		clear:  clear,
	}
}

func (rt *RenderTargetSet) Name() string {
	return "render targets"
}

func (rt *RenderTargetSet) Create(swapchain Swapchain) error {
	extent := swapchain.Extent()
	depthFormat := rt.device.DepthFormat

	renderpass, err := RenderpassCreate(rt.device, swapchain.ImageFormat().Format, depthFormat, rt.clear, 1.0, 0)
	if err != nil {
		return err
	}
	rt.Renderpass = renderpass

	if depthFormat != vk.FormatUndefined {
		depth, err := ImageCreate(
			rt.device,
			extent.Width,
			extent.Height,
			depthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit))
		if err != nil {
			rt.Destroy()
			return err
		}
		rt.Depth = depth
	}

	views := swapchain.ImageViews()
	rt.Framebuffers = make([]*VulkanFramebuffer, 0, len(views))
	for _, view := range views {
		attachments := []vk.ImageView{view}
		if rt.Depth != nil {
			attachments = append(attachments, rt.Depth.View)
		}
		fb, err := FramebufferCreate(rt.device, rt.Renderpass, extent.Width, extent.Height, attachments)
		if err != nil {
			rt.Destroy()
			return err
		}
		rt.Framebuffers = append(rt.Framebuffers, fb)
	}
	rt.Extent = extent

	core.LogDebug("Render targets created: %d framebuffers at %dx%d.", len(rt.Framebuffers), extent.Width, extent.Height)
	return nil
}

// Destroy releases the framebuffers before the views and render pass they
// reference.
func (rt *RenderTargetSet) Destroy() {
	for _, fb := range rt.Framebuffers {
		fb.Destroy(rt.device)
	}
	rt.Framebuffers = nil

	if rt.Depth != nil {
		rt.Depth.Destroy(rt.device)
		rt.Depth = nil
	}
	if rt.Renderpass != nil {
		rt.Renderpass.Destroy(rt.device)
		rt.Renderpass = nil
	}
}

// Framebuffer returns the framebuffer for a swapchain image. Indexing past
// the set is a programming error.
func (rt *RenderTargetSet) Framebuffer(imageIndex uint32) *VulkanFramebuffer {
	if int(imageIndex) >= len(rt.Framebuffers) {
		core.LogFatal("framebuffer index %d out of range (%d framebuffers)", imageIndex, len(rt.Framebuffers))
	}
	return rt.Framebuffers[imageIndex]
}
