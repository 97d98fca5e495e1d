// Package colorspace converts 8-bit RGB values to and from HSV.
//
// Hue is expressed in degrees in [0, 360), saturation and value in [0, 1].
// No gamma handling is done: channel values are used as they are stored.
package colorspace

import "math"

// RGBToHSV converts an 8-bit RGB triple to HSV.
//
// Hue is 0 for achromatic colors and saturation is 0 for black. When two
// channels share the maximum, red wins over green and green over blue.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rp := float64(r) / 255
	gp := float64(g) / 255
	bp := float64(b) / 255

	cMax := max(rp, gp, bp)
	cMin := min(rp, gp, bp)
	delta := cMax - cMin

	switch {
	case delta == 0:
		h = 0
	case cMax == rp:
		h = 60 * math.Mod((gp-bp)/delta, 6)
		if h < 0 {
			h += 360
		}
	case cMax == gp:
		h = 60 * ((bp-rp)/delta + 2)
	default:
		h = 60 * ((rp-gp)/delta + 4)
	}

	if cMax != 0 {
		s = delta / cMax
	}
	return h, s, cMax
}

// HSVToRGB converts an HSV triple back to 8-bit RGB.
//
// The hue is wrapped into [0, 360) with NormalizeHue first, so 360 maps to
// red and -120 to blue. Saturation and value are clamped to [0, 1].
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	h = NormalizeHue(h)
	s = clamp01(s)
	v = clamp01(v)

	c := v * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	m := v - c

	var rf, gf, bf float64
	switch {
	case hp < 1:
		rf, gf, bf = c, x, 0
	case hp < 2:
		rf, gf, bf = x, c, 0
	case hp < 3:
		rf, gf, bf = 0, c, x
	case hp < 4:
		rf, gf, bf = 0, x, c
	case hp < 5:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}

	return to8(rf + m), to8(gf + m), to8(bf + m)
}

// NormalizeHue wraps h into [0, 360). NaN and infinities map to 0.
func NormalizeHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// -tiny + 360 rounds up to 360 in float64
	if h >= 360 {
		h = 0
	}
	return h
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}

func to8(f float64) uint8 {
	return uint8(min(max(math.Round(f*255), 0), 255))
}
