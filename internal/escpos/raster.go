package escpos

import (
	"image"
	"image/color"
)

// Dots per line of the common printheads.
const (
	Dots58mm = 384
	Dots80mm = 576
)

// Raster encodes img as a GS v 0 bit image. Images wider than maxDots are
// scaled down; the width is trimmed to a multiple of 8.
func Raster(img image.Image, maxDots int) []byte {
	if maxDots > 0 && img.Bounds().Dx() > maxDots {
		img = resizeToWidth(img, maxDots)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// GS v 0 packs 8 horizontal dots per byte
	width -= width % 8
	rowBytes := width / 8
	raster := make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !isDark(img.At(bounds.Min.X+x, bounds.Min.Y+y)) {
				continue
			}
			raster[y*rowBytes+x/8] |= 1 << (7 - uint(x%8))
		}
	}

	out := make([]byte, 0, len(cmdRaster)+4+len(raster))
	out = append(out, cmdRaster...)
	out = append(out,
		byte(rowBytes), byte(rowBytes>>8),
		byte(height), byte(height>>8),
	)
	return append(out, raster...)
}

func isDark(c color.Color) bool {
	r, g, b, a := c.RGBA()
	if a < 0x8000 {
		// transparent pixels print as paper
		return false
	}
	gray := (r + g + b) / 3
	return gray < 0x8000
}

// resizeToWidth is a nearest-neighbour scale keeping the aspect ratio.
func resizeToWidth(src image.Image, targetWidth int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	scale := float64(targetWidth) / float64(w)
	newHeight := int(float64(h) * scale)
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			sx := bounds.Min.X + int(float64(x)/scale)
			sy := bounds.Min.Y + int(float64(y)/scale)
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
