package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

type VulkanFence struct {
	Handle vk.Fence
	// IsSignaled caches the last observed state so signaled fences are
	// neither waited on nor reset twice.
	IsSignaled bool
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if err := ResultError(vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.Allocator, &pFence), "vkCreateFence"); err != nil {
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy(device *VulkanDevice) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(device.LogicalDevice, vf.Handle, device.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

func (vf *VulkanFence) Wait(device *VulkanDevice, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.Newf("fence wait timed out after %dns", timeoutNs)
	}
	return ResultError(result, "vkWaitForFences")
}

func (vf *VulkanFence) Reset(device *VulkanDevice) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := ResultError(vk.ResetFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}), "vkResetFences"); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}

func newSemaphore(device *VulkanDevice) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := ResultError(vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, device.Allocator, &semaphore), "vkCreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

// CreateFrameSlot creates the sync objects of one frame in flight. The fence
// starts signaled so the first wait on the slot does not block forever.
func (d *VulkanDevice) CreateFrameSlot() (*FrameSlot, error) {
	slot := &FrameSlot{
		ImageAvailable: vk.NullSemaphore,
		RenderFinished: vk.NullSemaphore,
		State:          FrameSlotIdle,
	}

	var err error
	if slot.ImageAvailable, err = newSemaphore(d); err != nil {
		d.DestroyFrameSlot(slot)
		return nil, err
	}
	if slot.RenderFinished, err = newSemaphore(d); err != nil {
		d.DestroyFrameSlot(slot)
		return nil, err
	}
	if slot.InFlight, err = NewFence(d, true); err != nil {
		d.DestroyFrameSlot(slot)
		return nil, err
	}
	return slot, nil
}

func (d *VulkanDevice) DestroyFrameSlot(slot *FrameSlot) {
	if slot.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(d.LogicalDevice, slot.ImageAvailable, d.Allocator)
		slot.ImageAvailable = vk.NullSemaphore
	}
	if slot.RenderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(d.LogicalDevice, slot.RenderFinished, d.Allocator)
		slot.RenderFinished = vk.NullSemaphore
	}
	if slot.InFlight != nil {
		slot.InFlight.Destroy(d)
		slot.InFlight = nil
	}
}

func (d *VulkanDevice) WaitForFence(fence *VulkanFence, timeoutNs uint64) error {
	return fence.Wait(d, timeoutNs)
}

func (d *VulkanDevice) ResetFence(fence *VulkanFence) error {
	return fence.Reset(d)
}

// SubmitGraphics submits one command buffer to the graphics queue. It waits
// on wait at the color attachment output stage and signals both signal and
// fence on completion.
func (d *VulkanDevice) SubmitGraphics(commandBuffer *VulkanCommandBuffer, wait, signal vk.Semaphore, fence *VulkanFence) error {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}

	return d.locks.SafeQueueCall(uint32(d.Families.Graphics), func() error {
		return ResultError(vk.QueueSubmit(d.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle), "vkQueueSubmit")
	})
}
