package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// CubeRecorder pre-records, for each swapchain image, the render pass that
// draws the cube into that image's framebuffer.
type CubeRecorder struct {
	device   *VulkanDevice
	targets  *RenderTargetSet
	pipeline *CubePipeline
	uniforms *UniformSet
	geometry *VulkanGeometry
}

func NewCubeRecorder(device *VulkanDevice, targets *RenderTargetSet, pipeline *CubePipeline, uniforms *UniformSet, geometry *VulkanGeometry) *CubeRecorder {
	return &CubeRecorder{
		device:   device,
		targets:  targets,
		pipeline: pipeline,
		uniforms: uniforms,
		geometry: geometry,
	}
}

func (r *CubeRecorder) Allocate(count uint32) ([]*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        r.device.GraphicsCommandPool,
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}
	handles := make([]vk.CommandBuffer, count)
	if err := ResultError(vk.AllocateCommandBuffers(r.device.LogicalDevice, &allocateInfo, handles), "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	commandBuffers := make([]*VulkanCommandBuffer, count)
	for i, h := range handles {
		commandBuffers[i] = &VulkanCommandBuffer{
			Handle: h,
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	return commandBuffers, nil
}

func (r *CubeRecorder) Free(commandBuffers []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(commandBuffers))
	for _, cb := range commandBuffers {
		if cb.Handle != nil {
			handles = append(handles, cb.Handle)
		}
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) > 0 {
		vk.FreeCommandBuffers(r.device.LogicalDevice, r.device.GraphicsCommandPool, uint32(len(handles)), handles)
	}
}

func (r *CubeRecorder) Record(commandBuffer *VulkanCommandBuffer, imageIndex uint32) error {
	if r.pipeline.Pipeline == nil {
		return errors.AssertionFailedf("recording before the pipeline exists")
	}
	extent := r.targets.Extent

	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	r.targets.Renderpass.Begin(commandBuffer, r.targets.Framebuffer(imageIndex).Handle, extent)
	r.pipeline.Pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)

	// Dynamic state
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	r.geometry.Bind(commandBuffer)
	vk.CmdBindDescriptorSets(commandBuffer.Handle,
		vk.PipelineBindPointGraphics,
		r.pipeline.Pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{r.uniforms.Set(imageIndex)},
		0, nil)
	r.geometry.Draw(commandBuffer)

	r.targets.Renderpass.End(commandBuffer)
	return commandBuffer.End()
}
