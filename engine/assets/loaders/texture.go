package loaders

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/vkcube/engine/core"
)

const (
	checkerboardSize  = 256
	checkerboardCells = 8
)

type TextureLoader struct {
	FlipY bool
}

// LoadRGBA decodes any registered image format into RGBA8. A missing file
// yields a checkerboard so the cube can still be drawn.
func (tl *TextureLoader) LoadRGBA(path string) (uint32, uint32, []byte, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) || path == "" {
		core.LogWarn("Texture '%s' not found, using a checkerboard.", path)
		img := Checkerboard(checkerboardSize, checkerboardCells)
		return uint32(checkerboardSize), uint32(checkerboardSize), img.Pix, nil
	}
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	// Decodes the image (e.g., PNG, JPEG, BMP, TIFF, WebP)
	src, format, err := image.Decode(file)
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "decode %s", path)
	}
	core.LogDebug("Decoded %s texture %s.", format, path)

	rgba := ToRGBA(src, tl.FlipY)
	b := rgba.Bounds()
	return uint32(b.Dx()), uint32(b.Dy()), rgba.Pix, nil
}

// ToRGBA converts src into a tightly packed RGBA image whose origin is (0,0).
func ToRGBA(src image.Image, flipY bool) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	if flipY {
		stride := dst.Stride
		row := make([]byte, stride)
		for y := 0; y < b.Dy()/2; y++ {
			top := dst.Pix[y*stride : (y+1)*stride]
			bottom := dst.Pix[(b.Dy()-1-y)*stride : (b.Dy()-y)*stride]
			copy(row, top)
			copy(top, bottom)
			copy(bottom, row)
		}
	}
	return dst
}

func Checkerboard(size, cells int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := size / cells
	if cell == 0 {
		cell = 1
	}
	light := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	dark := color.RGBA{R: 64, G: 64, B: 64, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, light)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	return img
}
