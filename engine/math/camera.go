package math

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBufferObject is the std140 layout of the cube vertex shader's
// uniform block at binding 0.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// CubeTransforms spins the model around Z at 90 degrees per second and looks
// at it from (2,2,2). The projection is flipped on Y for Vulkan clip space.
func CubeTransforms(elapsed time.Duration, width, height uint32) UniformBufferObject {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	model := mgl32.HomogRotate3DZ(mgl32.DegToRad(90) * float32(elapsed.Seconds()))
	view := mgl32.LookAtV(
		mgl32.Vec3{2, 2, 2},
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, 1},
	)
	proj := mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 10.0)
	proj[5] *= -1
	return UniformBufferObject{
		Model: model,
		View:  view,
		Proj:  proj,
	}
}
