package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(device *VulkanDevice, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	// Take a copy of the attachments so the caller may reuse its slice.
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if err := ResultError(vk.CreateFramebuffer(device.LogicalDevice, &framebufferCreateInfo, device.Allocator, &pFramebuffer), "vkCreateFramebuffer"); err != nil {
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(device *VulkanDevice) {
	if vfb.Handle != vk.Framebuffer(vk.NullHandle) {
		vk.DestroyFramebuffer(device.LogicalDevice, vfb.Handle, device.Allocator)
		vfb.Handle = vk.Framebuffer(vk.NullHandle)
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
