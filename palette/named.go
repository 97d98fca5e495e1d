// Package palette provides the fixed palettes textures can be remapped onto
// and reads and writes them as RIFF PAL files.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	stdpalette "image/color/palette"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrUnknownPalette = errors.New("unknown palette")

var vga16 = color.Palette{
	color.RGBA{0x00, 0x00, 0x00, 0xFF},
	color.RGBA{0x00, 0x00, 0xAA, 0xFF},
	color.RGBA{0x00, 0xAA, 0x00, 0xFF},
	color.RGBA{0x00, 0xAA, 0xAA, 0xFF},
	color.RGBA{0xAA, 0x00, 0x00, 0xFF},
	color.RGBA{0xAA, 0x00, 0xAA, 0xFF},
	color.RGBA{0xAA, 0x55, 0x00, 0xFF},
	color.RGBA{0xAA, 0xAA, 0xAA, 0xFF},
	color.RGBA{0x55, 0x55, 0x55, 0xFF},
	color.RGBA{0x55, 0x55, 0xFF, 0xFF},
	color.RGBA{0x55, 0xFF, 0x55, 0xFF},
	color.RGBA{0x55, 0xFF, 0xFF, 0xFF},
	color.RGBA{0xFF, 0x55, 0x55, 0xFF},
	color.RGBA{0xFF, 0x55, 0xFF, 0xFF},
	color.RGBA{0xFF, 0xFF, 0x55, 0xFF},
	color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
}

// Names lists the built-in palettes.
func Names() []string {
	return []string{"bw", "gray4", "gray16", "vga16", "web", "plan9"}
}

// LoadPalette resolves name to a palette. Built-in names are matched first;
// a name containing '#' is read as comma separated hex colors, anything else
// as the path of a RIFF PAL file whose palettes are concatenated.
func LoadPalette(name string) (color.Palette, error) {
	switch strings.ToLower(name) {
	case "bw":
		return color.Palette{color.RGBA{0, 0, 0, 0xFF}, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}}, nil
	case "gray4":
		return grayRamp(4), nil
	case "gray16":
		return grayRamp(16), nil
	case "vga16":
		return slices.Clone(vga16), nil
	case "web":
		return slices.Clone(color.Palette(stdpalette.WebSafe)), nil
	case "plan9":
		return slices.Clone(color.Palette(stdpalette.Plan9)), nil
	case "":
		return nil, fmt.Errorf("%w: empty name", ErrUnknownPalette)
	}

	if strings.Contains(name, "#") {
		return parseHexList(name)
	}

	return readFile(name)
}

func grayRamp(n int) color.Palette {
	pal := make(color.Palette, n)
	for i := range n {
		pal[i] = color.Gray{Y: uint8(i * 255 / (n - 1))}
	}
	return pal
}

func parseHexList(s string) (color.Palette, error) {
	var pal color.Palette
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		c, err := colorful.Hex(field)
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %q: %w", field, err)
		}
		r, g, b := c.RGB255()
		pal = append(pal, color.RGBA{R: r, G: g, B: b, A: 0xFF})
	}

	if len(pal) == 0 {
		return nil, fmt.Errorf("%w: no colors in %q", ErrUnknownPalette, s)
	}
	return pal, nil
}

func readFile(name string) (color.Palette, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q is neither a built-in palette nor a file", ErrUnknownPalette, name)
		}
		return nil, fmt.Errorf("could not open palette file %q: %w", name, err)
	}
	defer f.Close()

	pals, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("could not load palettes from %q: %w", name, err)
	}

	var pal color.Palette
	for _, p := range pals {
		pal = append(pal, p...)
	}
	if len(pal) == 0 {
		return nil, fmt.Errorf("%w: %q holds no colors", ErrUnknownPalette, name)
	}
	return pal, nil
}
