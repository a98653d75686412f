package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/math"
)

type FaceCullMode int

const (
	FaceCullModeNone FaceCullMode = iota
	FaceCullModeFront
	FaceCullModeBack
	FaceCullModeFrontAndBack
)

func (m FaceCullMode) Flags() vk.CullModeFlags {
	switch m {
	case FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief A pointer to the renderpass to associate with the pipeline. */
	Renderpass *VulkanRenderpass
	/** @brief The vertex buffer binding. */
	Binding vk.VertexInputBindingDescription
	/** @brief An array of attributes. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief An array of descriptor set layouts. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief An array of stages. */
	Stages []vk.PipelineShaderStageCreateInfo
	/** @brief The initial viewport configuration. */
	Viewport vk.Viewport
	/** @brief The initial scissor configuration. */
	Scissor vk.Rect2D
	/** @brief The face cull mode. */
	CullMode FaceCullMode
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	DepthTest   bool
	DepthWrite  bool
}

// VertexInputDescription describes math.Vertex3D as a single interleaved
// binding: location 0 position, 1 colour, 2 texture coordinates.
func VertexInputDescription() (vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	var v math.Vertex3D
	binding := vk.VertexInputBindingDescription{
		Binding:   0, // Binding index
		Stride:    uint32(unsafe.Sizeof(v)),
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}
	attributes := []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Colour)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Texcoord)),
		},
	}
	return binding, attributes
}

func NewGraphicsPipeline(device *VulkanDevice, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	// Viewport state
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{config.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{config.Scissor},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                config.CullMode.Flags(),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
		depthStencil.DepthBoundsTestEnable = vk.False
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Attributes
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{config.Binding},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Pipeline layout
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}

	var pipelineLayout vk.PipelineLayout
	if err := ResultError(vk.CreatePipelineLayout(device.LogicalDevice, &pipelineLayoutCreateInfo, device.Allocator, &pipelineLayout), "vkCreatePipelineLayout"); err != nil {
		return nil, err
	}
	outPipeline.PipelineLayout = pipelineLayout

	// Pipeline create
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := ResultError(vk.CreateGraphicsPipelines(
		device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		device.Allocator,
		pipelines), "vkCreateGraphicsPipelines"); err != nil {
		outPipeline.Destroy(device)
		return nil, err
	}
	if pipelines[0] == vk.NullPipeline {
		outPipeline.Destroy(device)
		return nil, errors.New("vulkan pipeline handle is nil")
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(device *VulkanDevice) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(device.LogicalDevice, pipeline.Handle, device.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device.LogicalDevice, pipeline.PipelineLayout, device.Allocator)
		pipeline.PipelineLayout = vk.NullPipelineLayout
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}

// CubePipeline is the textured cube pipeline. Shaders are read again on
// every Create so edited SPIR-V is picked up by the next rebuild.
type CubePipeline struct {
	device       *VulkanDevice
	targets      *RenderTargetSet
	layout       *DescriptorLayout
	source       ShaderSource
	vertexPath   string
	fragmentPath string

	Pipeline *VulkanPipeline
}

func NewCubePipeline(device *VulkanDevice, targets *RenderTargetSet, layout *DescriptorLayout, source ShaderSource, vertexPath, fragmentPath string) *CubePipeline {
	return &CubePipeline{
		device:       device,
		targets:      targets,
		layout:       layout,
		source:       source,
		vertexPath:   vertexPath,
		fragmentPath: fragmentPath,
	}
}

func (cp *CubePipeline) Name() string {
	return "graphics pipeline"
}

func (cp *CubePipeline) Create(swapchain Swapchain) error {
	if cp.targets.Renderpass == nil {
		return errors.AssertionFailedf("pipeline created before its render pass")
	}

	vertex, err := NewShaderStage(cp.device, cp.source, cp.vertexPath, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	defer vertex.Destroy(cp.device)

	fragment, err := NewShaderStage(cp.device, cp.source, cp.fragmentPath, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	defer fragment.Destroy(cp.device)

	extent := swapchain.Extent()
	binding, attributes := VertexInputDescription()
	hasDepth := cp.targets.Renderpass.HasDepth

	pipeline, err := NewGraphicsPipeline(cp.device, &VulkanPipelineConfig{
		Renderpass:           cp.targets.Renderpass,
		Binding:              binding,
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{cp.layout.Handle},
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertex.ShaderStageCreateInfo,
			fragment.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Extent: extent,
		},
		CullMode:   FaceCullModeBack,
		DepthTest:  hasDepth,
		DepthWrite: hasDepth,
	})
	if err != nil {
		return err
	}
	cp.Pipeline = pipeline
	return nil
}

func (cp *CubePipeline) Destroy() {
	if cp.Pipeline != nil {
		cp.Pipeline.Destroy(cp.device)
		cp.Pipeline = nil
	}
}
