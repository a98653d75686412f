package vulkan

import (
	gomath "math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/math"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether a swapchain can be created at all.
func (s VulkanSwapchainSupportInfo) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	support := VulkanSwapchainSupportInfo{}

	if err := ResultError(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"); err != nil {
		return support, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := ResultError(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
		return support, err
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := ResultError(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
			return support, err
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if err := ResultError(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
		return support, err
	}
	if presentModeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		if err := ResultError(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, support.PresentModes), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
			return support, err
		}
	}

	return support, nil
}

var preferredSurfaceFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Unorm,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

// ChooseSurfaceFormat prefers BGRA8 unorm with the sRGB non-linear color
// space. A single UNDEFINED entry means the surface accepts any format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	if len(formats) == 0 {
		return preferredSurfaceFormat
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return preferredSurfaceFormat
	}
	for _, f := range formats {
		if f.Format == preferredSurfaceFormat.Format && f.ColorSpace == preferredSurfaceFormat.ColorSpace {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers MAILBOX, then IMMEDIATE. FIFO is always
// supported.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	immediate := false
	for _, m := range modes {
		switch m {
		case vk.PresentModeMailbox:
			return m
		case vk.PresentModeImmediate:
			immediate = true
		}
	}
	if immediate {
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless it is the
// 0xFFFFFFFF sentinel, in which case the window size is clamped into the
// supported range.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != gomath.MaxUint32 {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(width, min.Width, max.Width),
		Height: math.Clamp(height, min.Height, max.Height),
	}
}

// ChooseImageCount asks for one image above the minimum, capped at the
// maximum when the surface has one.
func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func ChooseSharingMode(graphicsFamily, presentFamily uint32) (vk.SharingMode, []uint32) {
	if graphicsFamily != presentFamily {
		return vk.SharingModeConcurrent, []uint32{graphicsFamily, presentFamily}
	}
	return vk.SharingModeExclusive, nil
}

// SwapchainPlan is every decision needed to fill a swapchain create info.
type SwapchainPlan struct {
	Format             vk.SurfaceFormat
	PresentMode        vk.PresentMode
	Extent             vk.Extent2D
	ImageCount         uint32
	SharingMode        vk.SharingMode
	QueueFamilyIndices []uint32
	PreTransform       vk.SurfaceTransformFlagBits
}

func PlanSwapchain(support VulkanSwapchainSupportInfo, width, height, graphicsFamily, presentFamily uint32) SwapchainPlan {
	sharing, families := ChooseSharingMode(graphicsFamily, presentFamily)
	return SwapchainPlan{
		Format:             ChooseSurfaceFormat(support.Formats),
		PresentMode:        ChoosePresentMode(support.PresentModes),
		Extent:             ChooseExtent(support.Capabilities, width, height),
		ImageCount:         ChooseImageCount(support.Capabilities),
		SharingMode:        sharing,
		QueueFamilyIndices: families,
		PreTransform:       support.Capabilities.CurrentTransform,
	}
}

// SwapchainStatus is the presentation engine's view of the chain after an
// acquire or a present.
type SwapchainStatus int

const (
	SwapchainOptimal SwapchainStatus = iota
	SwapchainSuboptimal
	SwapchainOutOfDate
)

func (s SwapchainStatus) String() string {
	switch s {
	case SwapchainOptimal:
		return "optimal"
	case SwapchainSuboptimal:
		return "suboptimal"
	case SwapchainOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// swapchainStatus separates the expected stale-chain results from real
// failures.
func swapchainStatus(result vk.Result, operation string) (SwapchainStatus, error) {
	switch result {
	case vk.Success:
		return SwapchainOptimal, nil
	case vk.Suboptimal:
		return SwapchainSuboptimal, nil
	case vk.ErrorOutOfDate:
		return SwapchainOutOfDate, nil
	}
	return SwapchainOptimal, ResultError(result, operation)
}

// VulkanSwapchain is the presentable image chain of one surface.
type VulkanSwapchain struct {
	device  *VulkanDevice
	surface vk.Surface

	Handle     vk.Swapchain
	Generation uuid.UUID
	Plan       SwapchainPlan
	Images     []vk.Image
	Views      []vk.ImageView
}

func NewVulkanSwapchain(device *VulkanDevice, surface vk.Surface) *VulkanSwapchain {
	return &VulkanSwapchain{
		device:  device,
		surface: surface,
		Handle:  vk.NullSwapchain,
	}
}

func (vs *VulkanSwapchain) Create(window Window) error {
	width, height := window.FramebufferSize()

	// Support changes with the surface; requery on every creation.
	support, err := DeviceQuerySwapchainSupport(vs.device.PhysicalDevice, vs.surface)
	if err != nil {
		return err
	}
	if !support.Adequate() {
		return errors.New("surface reports no formats or present modes")
	}

	plan := PlanSwapchain(support, width, height, uint32(vs.device.Families.Graphics), uint32(vs.device.Families.Present))
	if plan.Extent.Width == 0 || plan.Extent.Height == 0 {
		return errors.Wrapf(core.ErrSwapchainBooting, "surface extent %dx%d", plan.Extent.Width, plan.Extent.Height)
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               vs.surface,
		MinImageCount:         plan.ImageCount,
		ImageFormat:           plan.Format.Format,
		ImageColorSpace:       plan.Format.ColorSpace,
		ImageExtent:           plan.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      plan.SharingMode,
		QueueFamilyIndexCount: uint32(len(plan.QueueFamilyIndices)),
		PQueueFamilyIndices:   plan.QueueFamilyIndices,
		PreTransform:          plan.PreTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           plan.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	}

	var handle vk.Swapchain
	if err := ResultError(vk.CreateSwapchain(vs.device.LogicalDevice, &swapchainCreateInfo, vs.device.Allocator, &handle), "vkCreateSwapchainKHR"); err != nil {
		return err
	}
	vs.Handle = handle
	vs.Plan = plan

	var imageCount uint32
	if err := ResultError(vk.GetSwapchainImages(vs.device.LogicalDevice, vs.Handle, &imageCount, nil), "vkGetSwapchainImagesKHR"); err != nil {
		vs.Destroy()
		return err
	}
	images := make([]vk.Image, imageCount)
	if err := ResultError(vk.GetSwapchainImages(vs.device.LogicalDevice, vs.Handle, &imageCount, images), "vkGetSwapchainImagesKHR"); err != nil {
		vs.Destroy()
		return err
	}
	vs.Images = images

	vs.Views = make([]vk.ImageView, 0, imageCount)
	for _, image := range vs.Images {
		view, err := createImageView(vs.device, image, plan.Format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			vs.Destroy()
			return err
		}
		vs.Views = append(vs.Views, view)
	}

	vs.Generation = uuid.New()
	core.Logger().Info("Swapchain created",
		"generation", vs.Generation,
		"images", imageCount,
		"width", plan.Extent.Width,
		"height", plan.Extent.Height,
		"present_mode", presentModeName(plan.PresentMode))

	return nil
}

// Destroy releases the image views before the swapchain that owns their
// images. The images themselves belong to the swapchain.
func (vs *VulkanSwapchain) Destroy() {
	for _, view := range vs.Views {
		vk.DestroyImageView(vs.device.LogicalDevice, view, vs.device.Allocator)
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.device.LogicalDevice, vs.Handle, vs.device.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

func (vs *VulkanSwapchain) AcquireNextImage(signal vk.Semaphore, timeoutNs uint64) (uint32, SwapchainStatus, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.Handle, timeoutNs, signal, vk.NullFence, &imageIndex)
	status, err := swapchainStatus(result, "vkAcquireNextImageKHR")
	return imageIndex, status, err
}

func (vs *VulkanSwapchain) Present(imageIndex uint32, wait vk.Semaphore) (SwapchainStatus, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	return lockedPresent(vs.device.locks, uint32(vs.device.Families.Present), func() vk.Result {
		return vk.QueuePresent(vs.device.PresentQueue, &presentInfo)
	})
}

// lockedPresent runs present while holding the lock of the present family and
// maps its result to a status.
func lockedPresent(locks *VulkanLockPool, family uint32, present func() vk.Result) (SwapchainStatus, error) {
	var status SwapchainStatus
	err := locks.SafeQueueCall(family, func() error {
		var err error
		status, err = swapchainStatus(present(), "vkQueuePresentKHR")
		return err
	})
	return status, err
}

func (vs *VulkanSwapchain) ImageCount() uint32 {
	return uint32(len(vs.Images))
}

func (vs *VulkanSwapchain) ImageFormat() vk.SurfaceFormat {
	return vs.Plan.Format
}

func (vs *VulkanSwapchain) Extent() vk.Extent2D {
	return vs.Plan.Extent
}

func (vs *VulkanSwapchain) ImageViews() []vk.ImageView {
	return vs.Views
}

func (vs *VulkanSwapchain) GenerationID() uuid.UUID {
	return vs.Generation
}

func presentModeName(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo relaxed"
	}
	return "unknown"
}
