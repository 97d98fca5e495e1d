package pack

import (
	"fmt"
	"strings"

	"texpack/filter"
)

// Definition names one resource pack and the filter applied to all of its
// textures.
type Definition struct {
	Name        string
	Description string
	Filter      filter.Kind
}

// Definitions lists every pack that can be generated, in generation order.
var Definitions = []Definition{
	{Name: "Greyscale", Description: "§7All textures are greyscale", Filter: filter.Grayscale},
	{Name: "Invert", Description: "§6All textures are inverted", Filter: filter.Invert},
	{Name: "Saturation", Description: "§6Saturates all textures", Filter: filter.Saturate},
	{Name: "1-bit", Description: "§6All textures are dithered down to a few colors", Filter: filter.Dither},
	{Name: "Average", Description: "§6Every texture is its average color", Filter: filter.Average},
	{Name: "8bit", Description: "§6All textures are 8-bit", Filter: filter.Posterize},
	{Name: "K-Means", Description: "§6Every texture is reduced to its k-means palette", Filter: filter.KMeans},
	{Name: "Dominant", Description: "§6Every texture is reduced to its dominant colors", Filter: filter.Dominant},
	{Name: "Palette", Description: "§6All textures are remapped onto a fixed palette", Filter: filter.Palette},
}

// Lookup finds a definition by pack name, ignoring case.
func Lookup(name string) (Definition, error) {
	for _, def := range Definitions {
		if strings.EqualFold(def.Name, name) {
			return def, nil
		}
	}
	return Definition{}, fmt.Errorf("unknown pack %q", name)
}
