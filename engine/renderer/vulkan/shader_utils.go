package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// ShaderSource provides SPIR-V words for a shader file.
type ShaderSource interface {
	Load(path string) ([]uint32, error)
}

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func NewShaderStage(device *VulkanDevice, source ShaderSource, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := source.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read shader module: %s", path)
	}
	if len(code) == 0 {
		return nil, errors.Newf("shader module %s is empty", path)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var handle vk.ShaderModule
	if err := ResultError(vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.Allocator, &handle), "vkCreateShaderModule"); err != nil {
		return nil, errors.Wrap(err, path)
	}

	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(device *VulkanDevice) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.Handle, device.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
