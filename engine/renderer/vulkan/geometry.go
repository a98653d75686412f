package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/engine/math"
)

// VulkanGeometry is an indexed mesh living in device local memory.
type VulkanGeometry struct {
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	VertexCount  uint32
	IndexCount   uint32
}

func vertexBytes(vertices []math.Vertex3D) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(vertices[0])) * len(vertices)
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

func UploadGeometry(device *VulkanDevice, geometry *math.Geometry) (*VulkanGeometry, error) {
	vertices, err := UploadDeviceLocal(device, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vertexBytes(geometry.Vertices))
	if err != nil {
		return nil, err
	}
	indices, err := UploadDeviceLocal(device, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), indexBytes(geometry.Indices))
	if err != nil {
		vertices.Destroy(device)
		return nil, err
	}
	core.LogDebug("Uploaded geometry: %d vertices, %d indices.", len(geometry.Vertices), len(geometry.Indices))
	return &VulkanGeometry{
		VertexBuffer: vertices,
		IndexBuffer:  indices,
		VertexCount:  uint32(len(geometry.Vertices)),
		IndexCount:   uint32(len(geometry.Indices)),
	}, nil
}

func (g *VulkanGeometry) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{g.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, g.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
}

func (g *VulkanGeometry) Draw(commandBuffer *VulkanCommandBuffer) {
	vk.CmdDrawIndexed(commandBuffer.Handle, g.IndexCount, 1, 0, 0, 0)
}

func (g *VulkanGeometry) Destroy(device *VulkanDevice) {
	if g.IndexBuffer != nil {
		g.IndexBuffer.Destroy(device)
		g.IndexBuffer = nil
	}
	if g.VertexBuffer != nil {
		g.VertexBuffer.Destroy(device)
		g.VertexBuffer = nil
	}
}
