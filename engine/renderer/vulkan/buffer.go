package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a buffer with its own dedicated memory allocation.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags

	mapped unsafe.Pointer
}

// BufferCreate creates a buffer and binds fresh memory of the requested
// kind to it. A buffer used by more than one queue family is created
// concurrent so no ownership transfers are needed.
func BufferCreate(device *VulkanDevice, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, families ...uint32) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, errors.New("cannot create a zero sized buffer")
	}
	outBuffer := &VulkanBuffer{
		Size:  size,
		Usage: usage,
	}

	sharingMode := vk.SharingModeExclusive
	var familyIndices []uint32
	if unique := uniqueFamilies(families); len(unique) > 1 {
		sharingMode = vk.SharingModeConcurrent
		familyIndices = unique
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  size,
		Usage:                 usage,
		SharingMode:           sharingMode,
		QueueFamilyIndexCount: uint32(len(familyIndices)),
		PQueueFamilyIndices:   familyIndices,
	}

	var handle vk.Buffer
	if err := ResultError(vk.CreateBuffer(device.LogicalDevice, &bufferCreateInfo, device.Allocator, &handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}
	outBuffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, outBuffer.Handle, &requirements)
	requirements.Deref()

	memoryType, err := device.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		outBuffer.Destroy(device)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := ResultError(vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.Allocator, &memory), "vkAllocateMemory"); err != nil {
		outBuffer.Destroy(device)
		return nil, err
	}
	outBuffer.Memory = memory

	if err := ResultError(vk.BindBufferMemory(device.LogicalDevice, outBuffer.Handle, outBuffer.Memory, 0), "vkBindBufferMemory"); err != nil {
		outBuffer.Destroy(device)
		return nil, err
	}
	return outBuffer, nil
}

func uniqueFamilies(families []uint32) []uint32 {
	out := make([]uint32, 0, len(families))
	for _, f := range families {
		seen := false
		for _, o := range out {
			if o == f {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, f)
		}
	}
	return out
}

// Map keeps the whole buffer mapped until Unmap or Destroy. The memory must
// be host visible.
func (b *VulkanBuffer) Map(device *VulkanDevice) (unsafe.Pointer, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	var data unsafe.Pointer
	if err := ResultError(vk.MapMemory(device.LogicalDevice, b.Memory, 0, b.Size, 0, &data), "vkMapMemory"); err != nil {
		return nil, err
	}
	b.mapped = data
	return data, nil
}

func (b *VulkanBuffer) Unmap(device *VulkanDevice) {
	if b.mapped == nil {
		return
	}
	vk.UnmapMemory(device.LogicalDevice, b.Memory)
	b.mapped = nil
}

// LoadData copies data into mapped memory at offset.
func (b *VulkanBuffer) LoadData(device *VulkanDevice, offset vk.DeviceSize, data []byte) error {
	if offset+vk.DeviceSize(len(data)) > b.Size {
		return errors.Newf("writing %d bytes at offset %d overflows a %d byte buffer", len(data), offset, b.Size)
	}
	wasMapped := b.mapped != nil
	ptr, err := b.Map(device)
	if err != nil {
		return err
	}
	if n := vk.Memcopy(unsafe.Add(ptr, offset), data); n != len(data) {
		return errors.Newf("copied %d of %d bytes", n, len(data))
	}
	if !wasMapped {
		b.Unmap(device)
	}
	return nil
}

// CopyTo records and submits a copy of size bytes into dst, and waits for it
// to finish.
func (b *VulkanBuffer) CopyTo(device *VulkanDevice, pool vk.CommandPool, queue vk.Queue, family uint32, dst *VulkanBuffer, size vk.DeviceSize) error {
	cb, err := AllocateAndBeginSingleUse(device, pool)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cb.Handle, b.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	return cb.EndSingleUse(device, pool, queue, family)
}

func (b *VulkanBuffer) Destroy(device *VulkanDevice) {
	b.Unmap(device)
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device.LogicalDevice, b.Handle, device.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(device.LogicalDevice, b.Memory, device.Allocator)
		b.Memory = vk.DeviceMemory(vk.NullHandle)
	}
}

var hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

// NewStagingBuffer creates a host visible transfer source filled with data.
func NewStagingBuffer(device *VulkanDevice, data []byte) (*VulkanBuffer, error) {
	staging, err := BufferCreate(device, vk.DeviceSize(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	if err := staging.LoadData(device, 0, data); err != nil {
		staging.Destroy(device)
		return nil, err
	}
	return staging, nil
}

// UploadDeviceLocal creates a device local buffer with the given usage and
// fills it with data through a staging buffer on the transfer queue. The
// result is shared between the graphics and transfer families.
func UploadDeviceLocal(device *VulkanDevice, usage vk.BufferUsageFlags, data []byte) (*VulkanBuffer, error) {
	staging, err := NewStagingBuffer(device, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(device)

	transferFamily := device.TransferFamily()
	buffer, err := BufferCreate(device,
		vk.DeviceSize(len(data)),
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		uint32(device.Families.Graphics), transferFamily)
	if err != nil {
		return nil, err
	}

	if err := staging.CopyTo(device, device.TransferCommandPool, device.TransferQueue, transferFamily, buffer, vk.DeviceSize(len(data))); err != nil {
		buffer.Destroy(device)
		return nil, errors.Wrap(err, "staging copy")
	}
	return buffer, nil
}
