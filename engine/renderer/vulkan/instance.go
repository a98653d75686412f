package vulkan

import (
	"runtime"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

const (
	portabilityEnumerationExtensionName = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2Extension  = "VK_KHR_get_physical_device_properties2"
)

type VulkanInstance struct {
	Handle     vk.Instance
	Allocator  *vk.AllocationCallbacks
	Validation *Validation
	Extensions []string
}

// InstanceExtensions merges the surface extensions the platform needs with
// the ones validation and portability drivers need, without duplicates.
func InstanceExtensions(platformExtensions []string, validation *Validation, goos string) []string {
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			n = strings.TrimRight(n, "\x00")
			dup := false
			for _, o := range out {
				if o == n {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, n)
			}
		}
	}
	add(vk.KhrSurfaceExtensionName)
	add(platformExtensions...)
	if goos == "darwin" {
		add(portabilityEnumerationExtensionName, physicalDeviceProperties2Extension)
	}
	if validation != nil {
		add(validation.InstanceExtensions()...)
	}
	return out
}

func NewInstance(appName string, platformExtensions []string, validation *Validation) (*VulkanInstance, error) {
	if err := validation.CheckAvailable(); err != nil {
		return nil, err
	}

	extensions := InstanceExtensions(platformExtensions, validation, runtime.GOOS)
	core.LogInfo("Required extensions:")
	for _, e := range extensions {
		core.LogInfo(e)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("VkCube"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(validation.Layers())),
		PpEnabledLayerNames:     VulkanSafeStrings(validation.Layers()),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= vk.InstanceCreateFlags(vk.InstanceCreateEnumeratePortabilityBit)
	}

	var handle vk.Instance
	if err := ResultError(vk.CreateInstance(&createInfo, nil, &handle), "vkCreateInstance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(handle); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, err
	}
	core.LogInfo("Vulkan Instance created.")

	instance := &VulkanInstance{
		Handle:     handle,
		Validation: validation,
		Extensions: extensions,
	}
	if err := validation.Attach(handle); err != nil {
		instance.Destroy()
		return nil, err
	}
	return instance, nil
}

// Destroy removes the debug callback before the instance it belongs to.
func (vi *VulkanInstance) Destroy() {
	if vi.Handle == nil {
		return
	}
	vi.Validation.Destroy(vi.Handle)
	vk.DestroyInstance(vi.Handle, vi.Allocator)
	vi.Handle = nil
}
