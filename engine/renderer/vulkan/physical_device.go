package vulkan

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

// PhysicalDeviceRequirements are the properties a GPU must have to run the
// renderer.
type PhysicalDeviceRequirements struct {
	// Queues always includes graphics; compute and transfer are optional.
	Queues            vk.QueueFlags
	Present           bool
	DeviceExtensions  []string
	SamplerAnisotropy bool
	DiscreteGPU       bool
}

func DefaultPhysicalDeviceRequirements() PhysicalDeviceRequirements {
	return PhysicalDeviceRequirements{
		Queues:            vk.QueueFlags(vk.QueueGraphicsBit),
		Present:           true,
		DeviceExtensions:  []string{vk.KhrSwapchainExtensionName},
		SamplerAnisotropy: true,
	}
}

// PhysicalDeviceInfo is everything device selection needs to know about a
// candidate GPU, gathered once so that evaluation is a pure function.
type PhysicalDeviceInfo struct {
	Handle        vk.PhysicalDevice
	Name          string
	Type          vk.PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32

	QueueFamilies     []QueueFamily
	Extensions        []string
	SamplerAnisotropy bool
	SwapchainSupport  VulkanSwapchainSupportInfo

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

func (info *PhysicalDeviceInfo) HasExtension(name string) bool {
	name = strings.TrimRight(name, "\x00")
	for _, ext := range info.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

// DeviceVerdict is the outcome of evaluating one candidate.
type DeviceVerdict struct {
	Suitable bool
	Reason   string
	Queues   QueueFamilyIndices
	Score    int
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	}
	return "Unknown"
}

func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 250
	case vk.PhysicalDeviceTypeCpu:
		return 100
	}
	return 0
}

func rejected(reason string, args ...interface{}) DeviceVerdict {
	return DeviceVerdict{Queues: NewQueueFamilyIndices(), Reason: fmt.Sprintf(reason, args...)}
}

// EvaluatePhysicalDevice decides whether the described device satisfies req.
// The verdict carries the resolved queue families so nothing is stashed on
// the device while probing.
func EvaluatePhysicalDevice(info *PhysicalDeviceInfo, req PhysicalDeviceRequirements) DeviceVerdict {
	if req.DiscreteGPU && info.Type != vk.PhysicalDeviceTypeDiscreteGpu {
		return rejected("device is not a discrete GPU")
	}

	queues, err := ResolveQueueFamilies(info.QueueFamilies, req.Queues|vk.QueueFlags(vk.QueueGraphicsBit), req.Present)
	if err != nil {
		return rejected("%s", err)
	}

	for _, ext := range req.DeviceExtensions {
		if !info.HasExtension(ext) {
			return rejected("required extension %s is not supported", strings.TrimRight(ext, "\x00"))
		}
	}

	if req.Present && !info.SwapchainSupport.Adequate() {
		return rejected("swapchain support is inadequate")
	}

	if req.SamplerAnisotropy && !info.SamplerAnisotropy {
		return rejected("sampler anisotropy is not supported")
	}

	score := deviceTypeScore(info.Type)
	for _, f := range info.QueueFamilies {
		if f.Has(vk.QueueTransferBit) && !f.Has(vk.QueueGraphicsBit) && !f.Has(vk.QueueComputeBit) {
			score += 10
			break
		}
	}
	if queues.Present == queues.Graphics {
		score += 5
	}

	return DeviceVerdict{Suitable: true, Queues: queues, Score: score}
}

// PickPhysicalDevice returns the index of the best suitable candidate.
// Ties keep the first enumerated device.
func PickPhysicalDevice(candidates []*PhysicalDeviceInfo, req PhysicalDeviceRequirements) (int, DeviceVerdict, error) {
	best := -1
	var bestVerdict DeviceVerdict
	for i, info := range candidates {
		verdict := EvaluatePhysicalDevice(info, req)
		if !verdict.Suitable {
			core.LogInfo("Device '%s' is not suitable: %s", info.Name, verdict.Reason)
			continue
		}
		if best < 0 || verdict.Score > bestVerdict.Score {
			best = i
			bestVerdict = verdict
		}
	}
	if best < 0 {
		return -1, rejected("no candidate passed"), core.ErrNoSuitableDevice
	}
	return best, bestVerdict, nil
}

// QueryPhysicalDevice collects the device properties used by
// EvaluatePhysicalDevice.
func QueryPhysicalDevice(device vk.PhysicalDevice, surface vk.Surface) (*PhysicalDeviceInfo, error) {
	info := &PhysicalDeviceInfo{Handle: device}

	vk.GetPhysicalDeviceProperties(device, &info.Properties)
	info.Properties.Deref()
	info.Properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(device, &info.Features)
	info.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(device, &info.Memory)
	info.Memory.Deref()
	for i := uint32(0); i < info.Memory.MemoryTypeCount; i++ {
		info.Memory.MemoryTypes[i].Deref()
	}
	for i := uint32(0); i < info.Memory.MemoryHeapCount; i++ {
		info.Memory.MemoryHeaps[i].Deref()
	}

	info.Name = CString(info.Properties.DeviceName[:])
	info.Type = info.Properties.DeviceType
	info.APIVersion = info.Properties.ApiVersion
	info.DriverVersion = info.Properties.DriverVersion
	info.SamplerAnisotropy = info.Features.SamplerAnisotropy == vk.True

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)
	info.QueueFamilies = make([]QueueFamily, familyCount)
	for i := range families {
		families[i].Deref()
		qf := QueueFamily{
			Index:      uint32(i),
			Flags:      families[i].QueueFlags,
			QueueCount: families[i].QueueCount,
		}
		if surface != vk.NullSurface {
			var supportsPresent vk.Bool32
			if err := ResultError(vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent), "vkGetPhysicalDeviceSurfaceSupport"); err != nil {
				return nil, err
			}
			qf.SupportsPresent = supportsPresent == vk.True
		}
		info.QueueFamilies[i] = qf
	}

	var extensionCount uint32
	if err := ResultError(vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	extensions := make([]vk.ExtensionProperties, extensionCount)
	if extensionCount > 0 {
		if err := ResultError(vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, extensions), "vkEnumerateDeviceExtensionProperties"); err != nil {
			return nil, err
		}
	}
	info.Extensions = make([]string, 0, extensionCount)
	for i := range extensions {
		extensions[i].Deref()
		info.Extensions = append(info.Extensions, CString(extensions[i].ExtensionName[:]))
	}

	if surface != vk.NullSurface {
		support, err := DeviceQuerySwapchainSupport(device, surface)
		if err != nil {
			return nil, err
		}
		info.SwapchainSupport = support
	}

	return info, nil
}

// SelectPhysicalDevice enumerates every GPU on the instance and returns the
// best candidate together with its resolved queue families.
func SelectPhysicalDevice(instance vk.Instance, surface vk.Surface, req PhysicalDeviceRequirements) (*PhysicalDeviceInfo, QueueFamilyIndices, error) {
	var count uint32
	if err := ResultError(vk.EnumeratePhysicalDevices(instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, NewQueueFamilyIndices(), err
	}
	if count == 0 {
		return nil, NewQueueFamilyIndices(), errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := ResultError(vk.EnumeratePhysicalDevices(instance, &count, devices), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, NewQueueFamilyIndices(), err
	}

	candidates := make([]*PhysicalDeviceInfo, 0, count)
	for _, d := range devices {
		info, err := QueryPhysicalDevice(d, surface)
		if err != nil {
			return nil, NewQueueFamilyIndices(), err
		}
		candidates = append(candidates, info)
	}

	idx, verdict, err := PickPhysicalDevice(candidates, req)
	if err != nil {
		return nil, NewQueueFamilyIndices(), err
	}
	info := candidates[idx]

	core.LogInfo("Selected device: '%s'.", info.Name)
	core.LogInfo("GPU type is %s.", deviceTypeName(info.Type))
	core.LogInfo("GPU Driver version: %d.%d.%d",
		vk.Version(info.DriverVersion).Major(),
		vk.Version(info.DriverVersion).Minor(),
		vk.Version(info.DriverVersion).Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d",
		vk.Version(info.APIVersion).Major(),
		vk.Version(info.APIVersion).Minor(),
		vk.Version(info.APIVersion).Patch())
	for i := uint32(0); i < info.Memory.MemoryHeapCount; i++ {
		size := float32(info.Memory.MemoryHeaps[i].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(info.Memory.MemoryHeaps[i].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", size)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", size)
		}
	}
	core.LogDebug("Queue families: graphics=%d present=%d compute=%d transfer=%d",
		verdict.Queues.Graphics, verdict.Queues.Present, verdict.Queues.Compute, verdict.Queues.Transfer)

	return info, verdict.Queues, nil
}
