package filter

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"

	"texpack/colorspace"
	"texpack/disperse"
	"texpack/quantize"

	"github.com/cenkalti/dominantcolor"
	"golang.org/x/image/draw"
)

// toNRGBA copies src into a fresh NRGBA image with the same bounds. The
// result has Stride == 4*width, so its Pix can be walked four bytes at a time.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)

	// draw goes through premultiplied color, which would zero the RGB of
	// transparent pixels
	if n, ok := src.(*image.NRGBA); ok {
		w := b.Dx() * 4
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := n.PixOffset(b.Min.X, y)
			copy(dst.Pix[dst.PixOffset(b.Min.X, y):][:w], n.Pix[off:off+w])
		}
		return dst
	}

	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// Rec. 709 luma weights, scaled by 10000.
func grayscale(src image.Image) *image.NRGBA {
	img := toNRGBA(src)
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+3 : i+3]
		y := uint8((2126*uint32(p[0]) + 7152*uint32(p[1]) + 722*uint32(p[2]) + 5000) / 10000)
		p[0], p[1], p[2] = y, y, y
	}
	return img
}

func invert(src image.Image) *image.NRGBA {
	img := toNRGBA(src)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255 - img.Pix[i]
		img.Pix[i+1] = 255 - img.Pix[i+1]
		img.Pix[i+2] = 255 - img.Pix[i+2]
	}
	return img
}

// saturate doubles the HSV saturation of every pixel, capped at 1.
func saturate(src image.Image) *image.NRGBA {
	img := toNRGBA(src)
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+3 : i+3]
		h, s, v := colorspace.RGBToHSV(p[0], p[1], p[2])
		p[0], p[1], p[2] = colorspace.HSVToRGB(h, min(s*2, 1), v)
	}
	return img
}

// average paints every visible pixel with the mean color of the visible
// pixels. Fully transparent pixels are ignored and left as they are.
func average(src image.Image) *image.NRGBA {
	img := toNRGBA(src)

	var r, g, b, n uint64
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] > 0 {
			r += uint64(img.Pix[i])
			g += uint64(img.Pix[i+1])
			b += uint64(img.Pix[i+2])
			n++
		}
	}
	if n == 0 {
		return img
	}

	ar, ag, ab := uint8(r/n), uint8(g/n), uint8(b/n)
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] > 0 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = ar, ag, ab
		}
	}
	return img
}

func posterize(src image.Image) *image.NRGBA {
	img := toNRGBA(src)
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4 : i+4]
		c := disperse.Reduce(color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]})
		p[0], p[1], p[2] = c.R, c.G, c.B
	}
	return img
}

func dither(src image.Image) *image.NRGBA {
	return disperse.Dither(toNRGBA(src))
}

// kmeansRecolor learns a palette from the RGB of every pixel, transparent
// ones included, then moves each visible pixel onto its nearest entry.
func kmeansRecolor(logger *slog.Logger, src image.Image, q quantize.Quantizer) *image.NRGBA {
	img := toNRGBA(src)

	points := make([]quantize.Color, 0, len(img.Pix)/4)
	for i := 0; i < len(img.Pix); i += 4 {
		points = append(points, quantize.Color{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]})
	}

	res, err := q.Train(points)
	if err != nil {
		logger.Error("kmeans palette", "error", err)
		return img
	}
	logger.Debug("kmeans palette", "colors", len(res.Palette), "iterations", res.Iterations,
		"converged", res.Converged)

	recolor(img, res.Palette)
	return img
}

// dominantRecolor maps visible pixels onto the k dominant colors of src.
func dominantRecolor(src image.Image, k int) *image.NRGBA {
	img := toNRGBA(src)
	if img.Bounds().Empty() {
		return img
	}

	found := dominantcolor.FindWeight(opaque(img), k)
	pal := make([]quantize.Color, 0, len(found))
	for _, c := range found {
		pal = append(pal, quantize.Color{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B})
	}

	recolor(img, pal)
	return img
}

// opaque copies img with every visible pixel at full alpha. Matchers that
// read premultiplied RGBA() then see the straight color of translucent
// pixels. Fully transparent pixels stay transparent.
func opaque(img *image.NRGBA) *image.NRGBA {
	dst := &image.NRGBA{Pix: bytes.Clone(img.Pix), Stride: img.Stride, Rect: img.Rect}
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] > 0 {
			dst.Pix[i] = 255
		}
	}
	return dst
}

// recolor replaces the RGB of every pixel with alpha > 0 by its nearest
// palette entry.
func recolor(img *image.NRGBA, pal []quantize.Color) {
	if len(pal) == 0 {
		return
	}
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4 : i+4]
		if p[3] == 0 {
			continue
		}
		c := quantize.Closest(quantize.Color{R: p[0], G: p[1], B: p[2]}, pal)
		p[0], p[1], p[2] = c.R, c.G, c.B
	}
}

// remap draws src onto pal with Floyd-Steinberg dithering and copies the
// resulting colors into visible pixels, keeping the original alpha.
func remap(src image.Image, pal color.Palette) *image.NRGBA {
	img := toNRGBA(src)
	b := img.Bounds()

	dest := image.NewPaletted(b, pal)
	draw.FloydSteinberg.Draw(dest, b, opaque(img), b.Min)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			if img.Pix[off+3] == 0 {
				continue
			}
			c := color.NRGBAModel.Convert(pal[dest.ColorIndexAt(x, y)]).(color.NRGBA)
			img.Pix[off], img.Pix[off+1], img.Pix[off+2] = c.R, c.G, c.B
		}
	}
	return img
}
