package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

// VulkanTexture is a sampled RGBA image.
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

// TextureCreate uploads tightly packed RGBA8 pixels and creates a linear
// sampler for them. Anisotropic filtering is used when the device enabled it.
func TextureCreate(device *VulkanDevice, width, height uint32, pixels []byte) (*VulkanTexture, error) {
	if width == 0 || height == 0 {
		return nil, errors.New("texture has no pixels")
	}
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return nil, errors.Newf("expected %d bytes of RGBA data for %dx%d, got %d", want, width, height, len(pixels))
	}

	staging, err := NewStagingBuffer(device, pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(device)

	image, err := ImageCreate(
		device,
		width,
		height,
		vk.FormatR8g8b8a8Srgb,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	// The final barrier targets the fragment stage, so the whole upload runs
	// on the graphics queue.
	pool := device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(device, pool)
	if err != nil {
		image.Destroy(device)
		return nil, err
	}
	image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	image.CopyFromBuffer(cb, staging.Handle)
	image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	if err := cb.EndSingleUse(device, pool, device.GraphicsQueue, uint32(device.Families.Graphics)); err != nil {
		image.Destroy(device)
		return nil, errors.Wrap(err, "texture upload")
	}

	samplerInfo := SamplerDescription(device.Info.SamplerAnisotropy, device.Info.Properties.Limits.MaxSamplerAnisotropy)
	var sampler vk.Sampler
	if err := ResultError(vk.CreateSampler(device.LogicalDevice, &samplerInfo, device.Allocator, &sampler), "vkCreateSampler"); err != nil {
		image.Destroy(device)
		return nil, err
	}

	core.LogDebug("Texture created: %dx%d.", width, height)
	return &VulkanTexture{
		Image:   image,
		Sampler: sampler,
	}, nil
}

// SamplerDescription is a repeating linear sampler without mipmaps.
func SamplerDescription(anisotropy bool, maxAnisotropy float32) vk.SamplerCreateInfo {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}
	if anisotropy && maxAnisotropy >= 1 {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = maxAnisotropy
	}
	return info
}

func (t *VulkanTexture) Destroy(device *VulkanDevice) {
	if t.Sampler != vk.NullSampler {
		vk.DestroySampler(device.LogicalDevice, t.Sampler, device.Allocator)
		t.Sampler = vk.NullSampler
	}
	if t.Image != nil {
		t.Image.Destroy(device)
		t.Image = nil
	}
}
