package vulkan

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/spaghettifunk/vkcube/engine/math"
)

func TestVertexBytesLayout(t *testing.T) {
	cube := math.GenerateCube(2, 2, 2, 1, 1)
	data := vertexBytes(cube.Vertices)
	if len(data) != 24*32 {
		t.Fatalf("got %d bytes, want %d", len(data), 24*32)
	}

	// Second vertex, texture coordinate u at byte 24 of its record.
	v := cube.Vertices[1]
	got := gomath.Float32frombits(binary.LittleEndian.Uint32(data[32+24:]))
	if got != v.Texcoord[0] {
		t.Fatalf("u = %v, want %v", got, v.Texcoord[0])
	}
	x := gomath.Float32frombits(binary.LittleEndian.Uint32(data[32:]))
	if x != v.Position[0] {
		t.Fatalf("x = %v, want %v", x, v.Position[0])
	}
}

func TestIndexBytes(t *testing.T) {
	data := indexBytes([]uint32{1, 2, 0x01020304})
	if len(data) != 12 {
		t.Fatalf("got %d bytes", len(data))
	}
	if binary.LittleEndian.Uint32(data[8:]) != 0x01020304 {
		t.Fatal("indices must be copied in host byte order")
	}
	if vertexBytes(nil) != nil || indexBytes(nil) != nil {
		t.Fatal("empty input must produce no bytes")
	}
}

func TestUniqueFamilies(t *testing.T) {
	got := uniqueFamilies([]uint32{0, 2, 0, 2, 1})
	want := []uint32{0, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
