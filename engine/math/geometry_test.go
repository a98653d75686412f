package math

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func TestGenerateCubeCounts(t *testing.T) {
	g := GenerateCube(1, 1, 1, 1, 1)
	if len(g.Vertices) != 24 {
		t.Fatalf("vertices = %d, want 24", len(g.Vertices))
	}
	if len(g.Indices) != 36 {
		t.Fatalf("indices = %d, want 36", len(g.Indices))
	}
	for _, i := range g.Indices {
		if int(i) >= len(g.Vertices) {
			t.Fatalf("index %d out of range", i)
		}
	}
}

func TestGenerateCubeWindingFacesOutward(t *testing.T) {
	g := GenerateCube(2, 2, 2, 1, 1)
	for tri := 0; tri < len(g.Indices); tri += 3 {
		a := g.Vertices[g.Indices[tri]].Position
		b := g.Vertices[g.Indices[tri+1]].Position
		c := g.Vertices[g.Indices[tri+2]].Position
		normal := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Mul(1.0 / 3.0)
		if normal.Dot(centroid) <= 0 {
			t.Fatalf("triangle %d winds inward", tri/3)
		}
	}
}

func TestGenerateCubeZeroDimensionsDefault(t *testing.T) {
	g := GenerateCube(0, 0, 0, 0, 0)
	want := mgl32.Vec3{-0.5, -0.5, 0.5}
	if !g.Vertices[0].Position.ApproxEqual(want) {
		t.Fatalf("first vertex = %v, want %v", g.Vertices[0].Position, want)
	}
}

func TestCubeTransformsFlipsProjection(t *testing.T) {
	ubo := CubeTransforms(0, 800, 600)
	if ubo.Proj[5] >= 0 {
		t.Fatalf("projection Y scale must be negative, got %f", ubo.Proj[5])
	}
	if !ubo.Model.ApproxEqual(mgl32.Ident4()) {
		t.Fatal("model must be identity at t=0")
	}

	later := CubeTransforms(time.Second, 800, 600)
	if later.Model.ApproxEqual(mgl32.Ident4()) {
		t.Fatal("model must rotate over time")
	}
	zeroHeight := CubeTransforms(0, 800, 0)
	if zeroHeight.Proj[0] != zeroHeight.Proj[0] {
		t.Fatal("projection must not be NaN for a zero height")
	}
}
