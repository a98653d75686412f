package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/bmp"
)

func spirvBytes(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestDecodeSPIRV(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		words int
		err   bool
	}{
		{"valid", spirvBytes(spirvMagic, 0x00010000, 0, 1, 0), 5, false},
		{"empty", nil, 0, true},
		{"truncated", spirvBytes(spirvMagic)[:3], 0, true},
		{"bad magic", spirvBytes(0xdeadbeef, 0), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := DecodeSPIRV(tt.data)
			if tt.err {
				if !errors.Is(err, ErrInvalidSPIRV) {
					t.Fatalf("expected ErrInvalidSPIRV, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(code) != tt.words || code[0] != spirvMagic {
				t.Fatalf("code = %#v", code)
			}
		})
	}
}

func TestShaderLoaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.vert.spv")
	if err := os.WriteFile(path, spirvBytes(spirvMagic, 7), 0o644); err != nil {
		t.Fatal(err)
	}
	var sl ShaderLoader
	code, err := sl.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 2 || code[1] != 7 {
		t.Fatalf("code = %v", code)
	}

	if _, err := sl.Load(filepath.Join(t.TempDir(), "missing.spv")); err == nil {
		t.Fatal("expected an error for a missing module")
	}
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 255})
		}
	}
	return img
}

func TestToRGBA(t *testing.T) {
	src := gradient(3, 2)

	rgba := ToRGBA(src, false)
	if len(rgba.Pix) != 3*2*4 {
		t.Fatalf("got %d bytes", len(rgba.Pix))
	}
	if c := rgba.RGBAAt(2, 1); c.R != 20 || c.G != 10 {
		t.Fatalf("pixel (2,1) = %v", c)
	}

	flipped := ToRGBA(src, true)
	if c := flipped.RGBAAt(2, 0); c.R != 20 || c.G != 10 {
		t.Fatalf("flipped pixel (2,0) = %v", c)
	}
}

func TestToRGBANormalizesOrigin(t *testing.T) {
	src := gradient(4, 4).SubImage(image.Rect(1, 1, 3, 3))
	rgba := ToRGBA(src, false)
	if rgba.Bounds().Min != (image.Point{}) || rgba.Bounds().Dx() != 2 {
		t.Fatalf("bounds = %v", rgba.Bounds())
	}
	if c := rgba.RGBAAt(0, 0); c.R != 10 || c.G != 10 {
		t.Fatalf("pixel (0,0) = %v", c)
	}
}

func TestLoadRGBADecodesFormats(t *testing.T) {
	dir := t.TempDir()
	src := gradient(4, 2)

	encoders := map[string]func(*os.File) error{
		"tex.png": func(f *os.File) error { return png.Encode(f, src) },
		"tex.bmp": func(f *os.File) error { return bmp.Encode(f, src) },
	}
	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if err := encode(f); err != nil {
				t.Fatal(err)
			}
			f.Close()

			tl := &TextureLoader{}
			w, h, pixels, err := tl.LoadRGBA(path)
			if err != nil {
				t.Fatal(err)
			}
			if w != 4 || h != 2 || len(pixels) != 4*2*4 {
				t.Fatalf("got %dx%d with %d bytes", w, h, len(pixels))
			}
		})
	}
}

func TestLoadRGBAFallsBackToCheckerboard(t *testing.T) {
	tl := &TextureLoader{}
	w, h, pixels, err := tl.LoadRGBA(filepath.Join(t.TempDir(), "missing.png"))
	if err != nil {
		t.Fatal(err)
	}
	if w != checkerboardSize || h != checkerboardSize || len(pixels) != checkerboardSize*checkerboardSize*4 {
		t.Fatalf("got %dx%d with %d bytes", w, h, len(pixels))
	}
}

func TestLoadRGBARejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	tl := &TextureLoader{}
	if _, _, _, err := tl.LoadRGBA(path); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestCheckerboard(t *testing.T) {
	img := Checkerboard(16, 4)
	if img.RGBAAt(0, 0) == img.RGBAAt(4, 0) {
		t.Fatal("adjacent cells must differ")
	}
	if img.RGBAAt(0, 0) != img.RGBAAt(4, 4) {
		t.Fatal("diagonal cells must match")
	}
}
