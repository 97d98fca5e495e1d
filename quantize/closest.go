package quantize

// DistSq returns the squared euclidean distance between two colors.
func DistSq(a, b Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Index returns the index of the palette entry nearest to p, or -1 for an
// empty palette. The first entry wins ties.
func Index(p Color, palette []Color) int {
	ret, best := -1, 0
	for i, c := range palette {
		d := DistSq(p, c)
		if ret < 0 || d < best {
			if d == 0 {
				return i
			}
			ret, best = i, d
		}
	}
	return ret
}

// Closest returns the palette entry nearest to p. An empty palette leaves p
// as it is.
func Closest(p Color, palette []Color) Color {
	i := Index(p, palette)
	if i < 0 {
		return p
	}
	return palette[i]
}
