package math

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/vkcube/engine/core"
)

// Vertex3D matches the vertex input layout of the cube pipeline: location 0
// position, location 1 colour, location 2 texture coordinates.
type Vertex3D struct {
	Position mgl32.Vec3
	Colour   mgl32.Vec3
	Texcoord mgl32.Vec2
}

type Geometry struct {
	Vertices []Vertex3D
	Indices  []uint32
}

var faceColours = [6]mgl32.Vec3{
	{1.0, 0.3, 0.3},
	{0.3, 1.0, 0.3},
	{0.3, 0.3, 1.0},
	{1.0, 1.0, 0.3},
	{0.3, 1.0, 1.0},
	{1.0, 0.3, 1.0},
}

// GenerateCube builds a cube centered on the origin with 4 vertices per side
// and counter-clockwise winding when viewed from outside.
func GenerateCube(width, height, depth, tileX, tileY float32) *Geometry {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	minX, maxX := -width*0.5, width*0.5
	minY, maxY := -height*0.5, height*0.5
	minZ, maxZ := -depth*0.5, depth*0.5

	positions := [6][4]mgl32.Vec3{
		// Front
		{{minX, minY, maxZ}, {maxX, maxY, maxZ}, {minX, maxY, maxZ}, {maxX, minY, maxZ}},
		// Back
		{{maxX, minY, minZ}, {minX, maxY, minZ}, {maxX, maxY, minZ}, {minX, minY, minZ}},
		// Left
		{{minX, minY, minZ}, {minX, maxY, maxZ}, {minX, maxY, minZ}, {minX, minY, maxZ}},
		// Right
		{{maxX, minY, maxZ}, {maxX, maxY, minZ}, {maxX, maxY, maxZ}, {maxX, minY, minZ}},
		// Bottom
		{{maxX, minY, maxZ}, {minX, minY, minZ}, {maxX, minY, minZ}, {minX, minY, maxZ}},
		// Top
		{{minX, maxY, maxZ}, {maxX, maxY, minZ}, {minX, maxY, minZ}, {maxX, maxY, maxZ}},
	}
	texcoords := [4]mgl32.Vec2{
		{0, 0}, {tileX, tileY}, {0, tileY}, {tileX, 0},
	}

	g := &Geometry{
		Vertices: make([]Vertex3D, 0, 4*6),
		Indices:  make([]uint32, 0, 6*6),
	}
	for face := 0; face < 6; face++ {
		for corner := 0; corner < 4; corner++ {
			g.Vertices = append(g.Vertices, Vertex3D{
				Position: positions[face][corner],
				Colour:   faceColours[face],
				Texcoord: texcoords[corner],
			})
		}
		offset := uint32(face * 4)
		g.Indices = append(g.Indices,
			offset+0, offset+1, offset+2,
			offset+0, offset+3, offset+1,
		)
	}
	return g
}
