package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanImage is a device image with its backing memory and one view.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

func ImageCreate(
	device *VulkanDevice,
	width, height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	createView bool,
	viewAspectFlags vk.ImageAspectFlags,
) (*VulkanImage, error) {
	outImage := &VulkanImage{
		Width:  width,
		Height: height,
		Format: format,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if err := ResultError(vk.CreateImage(device.LogicalDevice, &imageCreateInfo, device.Allocator, &handle), "vkCreateImage"); err != nil {
		return nil, err
	}
	outImage.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, outImage.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := device.FindMemoryIndex(memoryRequirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		outImage.Destroy(device)
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := ResultError(vk.AllocateMemory(device.LogicalDevice, &memoryAllocateInfo, device.Allocator, &memory), "vkAllocateMemory"); err != nil {
		outImage.Destroy(device)
		return nil, err
	}
	outImage.Memory = memory

	// TODO: configurable memory offset.
	if err := ResultError(vk.BindImageMemory(device.LogicalDevice, outImage.Handle, outImage.Memory, 0), "vkBindImageMemory"); err != nil {
		outImage.Destroy(device)
		return nil, err
	}

	if createView {
		view, err := createImageView(device, outImage.Handle, format, viewAspectFlags)
		if err != nil {
			outImage.Destroy(device)
			return nil, err
		}
		outImage.View = view
	}

	return outImage, nil
}

func createImageView(device *VulkanDevice, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := ResultError(vk.CreateImageView(device.LogicalDevice, &viewCreateInfo, device.Allocator, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// Destroy releases the view, the image and its memory, in that order.
func (vi *VulkanImage) Destroy(device *VulkanDevice) {
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(device.LogicalDevice, vi.View, device.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Handle != vk.Image(vk.NullHandle) {
		vk.DestroyImage(device.LogicalDevice, vi.Handle, device.Allocator)
		vi.Handle = vk.Image(vk.NullHandle)
	}
	if vi.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(device.LogicalDevice, vi.Memory, device.Allocator)
		vi.Memory = vk.DeviceMemory(vk.NullHandle)
	}
}

// ImageLayoutTransition describes the barrier masks for one of the layout
// changes used by texture uploads.
type ImageLayoutTransition struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
}

// LayoutTransition returns the barrier masks for old to new, or false when
// the pair is not supported.
func LayoutTransition(oldLayout, newLayout vk.ImageLayout) (ImageLayoutTransition, bool) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return ImageLayoutTransition{
			SrcAccess: 0,
			DstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, true
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return ImageLayoutTransition{
			SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, true
	}
	return ImageLayoutTransition{}, false
}

func (vi *VulkanImage) TransitionLayout(commandBuffer *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) bool {
	transition, ok := LayoutTransition(oldLayout, newLayout)
	if !ok {
		return false
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: transition.SrcAccess,
		DstAccessMask: transition.DstAccess,
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle, transition.SrcStage, transition.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return true
}

func (vi *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer vk.Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  vi.Width,
			Height: vi.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}
