package vulkan

import (
	vk "github.com/goki/vulkan"
)

// RenderPassLayout is the attachment, subpass and dependency layout of the
// main pass, kept apart from the native create call.
type RenderPassLayout struct {
	Attachments    []vk.AttachmentDescription
	ColorReference vk.AttachmentReference
	// nil when the pass has no depth attachment.
	DepthReference *vk.AttachmentReference
	Dependency     vk.SubpassDependency
}

// RenderPassDescription lays out a single subpass with one color attachment
// presented at the end of the pass and, when depthFormat is not undefined,
// one depth attachment that is cleared and discarded.
func RenderPassDescription(colorFormat, depthFormat vk.Format) RenderPassLayout {
	layout := RenderPassLayout{}

	layout.Attachments = append(layout.Attachments, vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	})
	layout.ColorReference = vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	access := vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)

	if depthFormat != vk.FormatUndefined {
		layout.Attachments = append(layout.Attachments, vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		layout.DepthReference = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}

	layout.Dependency = vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		SrcAccessMask: 0,
		DstStageMask:  stages,
		DstAccessMask: access,
	}
	return layout
}

type VulkanRenderpass struct {
	Handle     vk.RenderPass
	R, G, B, A float32
	Depth      float32
	Stencil    uint32
	HasDepth   bool
}

func RenderpassCreate(device *VulkanDevice, colorFormat, depthFormat vk.Format, clear [4]float32, depth float32, stencil uint32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		R:        clear[0],
		G:        clear[1],
		B:        clear[2],
		A:        clear[3],
		Depth:    depth,
		Stencil:  stencil,
		HasDepth: depthFormat != vk.FormatUndefined,
	}

	layout := RenderPassDescription(colorFormat, depthFormat)

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{layout.ColorReference},
	}
	if layout.DepthReference != nil {
		subpass.PDepthStencilAttachment = layout.DepthReference
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(layout.Attachments)),
		PAttachments:    layout.Attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{layout.Dependency},
	}

	var pRenderPass vk.RenderPass
	if err := ResultError(vk.CreateRenderPass(device.LogicalDevice, &renderpassCreateInfo, device.Allocator, &pRenderPass), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) Destroy(device *VulkanDevice) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device.LogicalDevice, vr.Handle, device.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

// ClearValues returns the clear color and, for passes with depth, the depth
// stencil clear.
func (vr *VulkanRenderpass) ClearValues() []vk.ClearValue {
	count := 1
	if vr.HasDepth {
		count = 2
	}
	clearValues := make([]vk.ClearValue, count)
	clearValues[0].SetColor([]float32{vr.R, vr.G, vr.B, vr.A})
	if vr.HasDepth {
		clearValues[1].SetDepthStencil(vr.Depth, vr.Stencil)
	}
	return clearValues
}

func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer, extent vk.Extent2D) {
	clearValues := vr.ClearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
