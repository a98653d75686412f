package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

// VulkanDevice owns the logical device, its queues and the command pools
// created on them. Queue family indices are fixed for its whole lifetime.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Allocator      *vk.AllocationCallbacks

	Info     *PhysicalDeviceInfo
	Families QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool
	// Same handle as GraphicsCommandPool when transfers share the graphics family.
	TransferCommandPool vk.CommandPool

	DepthFormat vk.Format

	locks *VulkanLockPool
}

func DeviceCreate(info *PhysicalDeviceInfo, families QueueFamilyIndices, allocator *vk.AllocationCallbacks) (*VulkanDevice, error) {
	device := &VulkanDevice{
		PhysicalDevice: info.Handle,
		Allocator:      allocator,
		Info:           info,
		Families:       families,
		locks:          NewVulkanLockPool(),
	}

	core.LogInfo("Creating logical device...")

	// Shared families collapse into a single queue create info.
	queueCreateInfos := QueueCreateInfos(families)

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if info.SamplerAnisotropy {
		deviceFeatures.SamplerAnisotropy = vk.True
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	if info.HasExtension(portabilitySubsetExtensionName) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensions = append(extensions, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var logicalDevice vk.Device
	if err := ResultError(vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, allocator, &logicalDevice), "vkCreateDevice"); err != nil {
		return nil, err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	for _, family := range families.Unique() {
		device.locks.SetQueueFamily(family)
	}

	device.GraphicsQueue = device.queue(families.Graphics)
	device.PresentQueue = device.queue(families.Present)
	device.ComputeQueue = device.queue(families.Compute)
	device.TransferQueue = device.queue(families.Transfer)
	if device.TransferQueue == nil {
		device.TransferQueue = device.GraphicsQueue
	}
	core.LogInfo("Queues obtained.")

	pool, err := device.createCommandPool(uint32(families.Graphics), vk.CommandPoolCreateResetCommandBufferBit)
	if err != nil {
		device.Destroy()
		return nil, err
	}
	device.GraphicsCommandPool = pool
	device.TransferCommandPool = pool

	if families.Transfer >= 0 && families.Transfer != families.Graphics {
		transferPool, err := device.createCommandPool(uint32(families.Transfer), vk.CommandPoolCreateTransientBit)
		if err != nil {
			device.Destroy()
			return nil, err
		}
		device.TransferCommandPool = transferPool
	}
	core.LogInfo("Command pools created.")

	depthFormat, err := DetectDepthFormat(device.PhysicalDevice)
	if err != nil {
		device.Destroy()
		return nil, err
	}
	device.DepthFormat = depthFormat

	return device, nil
}

func (d *VulkanDevice) queue(family int32) vk.Queue {
	if family < 0 {
		return nil
	}
	var q vk.Queue
	vk.GetDeviceQueue(d.LogicalDevice, uint32(family), 0, &q)
	return q
}

func (d *VulkanDevice) createCommandPool(family uint32, flags vk.CommandPoolCreateFlagBits) (vk.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(flags),
	}
	var pool vk.CommandPool
	if err := ResultError(vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, d.Allocator, &pool), "vkCreateCommandPool"); err != nil {
		return nil, err
	}
	return pool, nil
}

// TransferFamily is the family staging copies run on.
func (d *VulkanDevice) TransferFamily() uint32 {
	if d.Families.Transfer >= 0 {
		return uint32(d.Families.Transfer)
	}
	return uint32(d.Families.Graphics)
}

func (d *VulkanDevice) Destroy() {
	if d.LogicalDevice == nil {
		return
	}
	core.LogInfo("Destroying command pools...")
	if d.TransferCommandPool != nil && d.TransferCommandPool != d.GraphicsCommandPool {
		vk.DestroyCommandPool(d.LogicalDevice, d.TransferCommandPool, d.Allocator)
	}
	if d.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, d.Allocator)
	}
	d.TransferCommandPool = nil
	d.GraphicsCommandPool = nil

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.LogicalDevice, d.Allocator)
	d.LogicalDevice = nil

	d.GraphicsQueue = nil
	d.PresentQueue = nil
	d.ComputeQueue = nil
	d.TransferQueue = nil
}

// WaitIdle blocks until every queue of the device is idle.
func (d *VulkanDevice) WaitIdle() error {
	return ResultError(vk.DeviceWaitIdle(d.LogicalDevice), "vkDeviceWaitIdle")
}

var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// ChooseDepthFormat returns the first candidate whose optimal tiling features
// allow a depth stencil attachment. Depth images are always created with
// optimal tiling.
func ChooseDepthFormat(candidates []vk.Format, properties func(vk.Format) vk.FormatProperties) (vk.Format, bool) {
	flags := vk.FormatFeatureFlagBits(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		props := properties(candidate)
		if vk.FormatFeatureFlagBits(props.OptimalTilingFeatures)&flags == flags {
			return candidate, true
		}
	}
	return vk.FormatUndefined, false
}

func DetectDepthFormat(physicalDevice vk.PhysicalDevice) (vk.Format, error) {
	format, ok := ChooseDepthFormat(depthFormatCandidates, func(f vk.Format) vk.FormatProperties {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(physicalDevice, f, &props)
		props.Deref()
		return props
	})
	if !ok {
		return vk.FormatUndefined, errors.New("failed to find a supported depth format")
	}
	return format, nil
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// carries all of the requested property flags.
func FindMemoryIndex(memory *vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		if typeFilter&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	return 0, errors.Newf("unable to find a suitable memory type (filter %#x, flags %#x)", typeFilter, uint32(propertyFlags))
}

func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	return FindMemoryIndex(&d.Info.Memory, typeFilter, propertyFlags)
}
