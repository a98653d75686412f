package vulkan

import (
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/math"
)

const (
	uniformBinding = 0
	samplerBinding = 1
)

// DescriptorSetLayoutBindings is the cube's single set: the transforms at
// binding 0 for the vertex stage and the texture at binding 1 for the
// fragment stage.
func DescriptorSetLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:         uniformBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         samplerBinding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
}

// DescriptorPoolSizes covers one set per swapchain image.
func DescriptorPoolSizes(imageCount uint32) []vk.DescriptorPoolSize {
	return []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: imageCount,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: imageCount,
		},
	}
}

// DescriptorLayout outlives swapchain rebuilds; the pipeline layout and the
// uniform sets both refer to it.
type DescriptorLayout struct {
	Handle vk.DescriptorSetLayout
}

func NewDescriptorLayout(device *VulkanDevice) (*DescriptorLayout, error) {
	bindings := DescriptorSetLayoutBindings()
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var handle vk.DescriptorSetLayout
	if err := ResultError(vk.CreateDescriptorSetLayout(device.LogicalDevice, &createInfo, device.Allocator, &handle), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	return &DescriptorLayout{Handle: handle}, nil
}

func (l *DescriptorLayout) Destroy(device *VulkanDevice) {
	if l.Handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device.LogicalDevice, l.Handle, device.Allocator)
		l.Handle = vk.NullDescriptorSetLayout
	}
}

// UniformSet holds one uniform buffer and one descriptor set per swapchain
// image. It is rebuilt with the swapchain because the image count may change.
type UniformSet struct {
	device  *VulkanDevice
	layout  *DescriptorLayout
	texture *VulkanTexture

	Buffers []*VulkanBuffer
	Pool    vk.DescriptorPool
	Sets    []vk.DescriptorSet
}

func NewUniformSet(device *VulkanDevice, layout *DescriptorLayout, texture *VulkanTexture) *UniformSet {
	return &UniformSet{
		device:  device,
		layout:  layout,
		texture: texture,
	}
}

func (us *UniformSet) Name() string {
	return "uniform buffers"
}

func (us *UniformSet) Create(swapchain Swapchain) error {
	count := swapchain.ImageCount()
	size := vk.DeviceSize(unsafe.Sizeof(math.UniformBufferObject{}))

	us.Buffers = make([]*VulkanBuffer, 0, count)
	for i := uint32(0); i < count; i++ {
		buffer, err := BufferCreate(us.device, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostCoherent)
		if err != nil {
			us.Destroy()
			return errors.Wrapf(err, "uniform buffer %d", i)
		}
		us.Buffers = append(us.Buffers, buffer)
		if _, err := buffer.Map(us.device); err != nil {
			us.Destroy()
			return err
		}
	}

	poolSizes := DescriptorPoolSizes(count)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       count,
	}
	var pool vk.DescriptorPool
	if err := ResultError(vk.CreateDescriptorPool(us.device.LogicalDevice, &poolInfo, us.device.Allocator, &pool), "vkCreateDescriptorPool"); err != nil {
		us.Destroy()
		return err
	}
	us.Pool = pool

	us.Sets = make([]vk.DescriptorSet, count)
	for i := range us.Sets {
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     us.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{us.layout.Handle},
		}
		if err := ResultError(vk.AllocateDescriptorSets(us.device.LogicalDevice, &allocInfo, &us.Sets[i]), "vkAllocateDescriptorSets"); err != nil {
			us.Destroy()
			return err
		}

		writes := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          us.Sets[i],
				DstBinding:      uniformBinding,
				DstArrayElement: 0,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: us.Buffers[i].Handle,
					Offset: 0,
					Range:  size,
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          us.Sets[i],
				DstBinding:      samplerBinding,
				DstArrayElement: 0,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
					ImageView:   us.texture.Image.View,
					Sampler:     us.texture.Sampler,
				}},
			},
		}
		vk.UpdateDescriptorSets(us.device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}

	core.LogDebug("Created %d uniform buffers and descriptor sets.", count)
	return nil
}

// Update writes the transforms for the image about to be submitted. The
// image's previous submission has completed by the time this runs.
func (us *UniformSet) Update(imageIndex uint32, extent vk.Extent2D, elapsed time.Duration) error {
	if int(imageIndex) >= len(us.Buffers) {
		return errors.AssertionFailedf("no uniform buffer for image %d", imageIndex)
	}
	ubo := math.CubeTransforms(elapsed, extent.Width, extent.Height)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&ubo)), unsafe.Sizeof(ubo))
	return us.Buffers[imageIndex].LoadData(us.device, 0, data)
}

func (us *UniformSet) Set(imageIndex uint32) vk.DescriptorSet {
	return us.Sets[imageIndex]
}

// Destroy frees the pool, which releases its sets, and then the buffers.
func (us *UniformSet) Destroy() {
	if us.Pool != nil {
		vk.DestroyDescriptorPool(us.device.LogicalDevice, us.Pool, us.device.Allocator)
		us.Pool = nil
	}
	us.Sets = nil
	for _, b := range us.Buffers {
		b.Destroy(us.device)
	}
	us.Buffers = nil
}
