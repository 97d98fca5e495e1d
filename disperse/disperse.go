// Package disperse reduces channel depth of RGBA images, optionally
// diffusing the rounding error to neighbouring pixels.
package disperse

import (
	"image"
	"image/color"
)

// Quantization steps per channel. Blue gets a coarser grid than red and green.
const (
	RedStep   = 32
	GreenStep = 32
	BlueStep  = 64
)

// steps lists the grid for R, G, B, A. Alpha keeps full precision.
var steps = [4]int32{RedStep, GreenStep, BlueStep, 1}

// Reduce truncates every color channel of c down to its quantization step.
// Alpha is left alone.
func Reduce(c color.NRGBA) color.NRGBA {
	return color.NRGBA{
		R: c.R / RedStep * RedStep,
		G: c.G / GreenStep * GreenStep,
		B: c.B / BlueStep * BlueStep,
		A: c.A,
	}
}

// diffusion holds Floyd-Steinberg weights: offsets and numerator over 16.
var diffusion = [...]struct {
	dx, dy, num int
}{
	{1, 0, 7},
	{-1, 1, 3},
	{0, 1, 5},
	{1, 1, 1},
}

// Dither reduces src to the Reduce grid in row-major order, spreading each
// pixel's rounding error to the right and lower neighbours. Error that would
// fall outside the image is lost. src is not modified.
func Dither(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	// signed working copy, 4 channels per pixel
	work := make([]int32, w*h*4)
	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for i, v := range row {
			work[y*w*4+i] = int32(v)
		}
	}

	for y := range h {
		for x := range w {
			off := (y*w + x) * 4
			var quant [4]int32
			for ch, step := range steps {
				old := work[off+ch]
				reduced := old / step * step
				work[off+ch] = reduced
				quant[ch] = old - reduced
			}

			for _, d := range diffusion {
				nx, ny := x+d.dx, y+d.dy
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				noff := (ny*w + nx) * 4
				for ch := range quant {
					work[noff+ch] += quant[ch] * int32(d.num) / 16
				}
			}
		}
	}

	dst := image.NewNRGBA(b)
	for y := range h {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := range row {
			row[i] = uint8(min(max(work[y*w*4+i], 0), 255))
		}
	}
	return dst
}
