// Package filter holds the per-image transforms applied to textures.
//
// Every transform takes a decoded image and returns a new *image.NRGBA with
// the same bounds. Inputs are never modified or retained.
package filter

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"texpack/quantize"
)

var ErrUnknownKind = errors.New("unknown filter")

// Kind selects one transform.
type Kind int

const (
	Grayscale Kind = iota
	Invert
	Saturate
	Average
	Posterize
	Dither
	KMeans
	Dominant
	Palette
)

var kindNames = [...]string{
	Grayscale: "grayscale",
	Invert:    "invert",
	Saturate:  "saturate",
	Average:   "average",
	Posterize: "posterize",
	Dither:    "dither",
	KMeans:    "kmeans",
	Dominant:  "dominant",
	Palette:   "palette",
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind looks a kind up by its name, ignoring case.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Config carries the settings some kinds need.
type Config struct {
	// K is the palette size for KMeans and Dominant.
	K int
	// MaxIterations caps k-means; 0 runs until convergence.
	MaxIterations int
	// Rand drives k-means. When set, the returned Func shares it and must not
	// be called concurrently. When nil every call seeds its own generator.
	Rand quantize.Rand
	// Palette is the target palette for the Palette kind.
	Palette color.Palette
	// Logger receives k-means diagnostics at debug level. Optional.
	Logger *slog.Logger
}

// Func transforms one image.
type Func func(src image.Image) *image.NRGBA

// New returns the transform for kind, after checking conf for it.
func New(kind Kind, conf Config) (Func, error) {
	logger := conf.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch kind {
	case Grayscale:
		return grayscale, nil
	case Invert:
		return invert, nil
	case Saturate:
		return saturate, nil
	case Average:
		return average, nil
	case Posterize:
		return posterize, nil
	case Dither:
		return dither, nil
	case KMeans:
		q := quantize.Quantizer{K: conf.K, MaxIterations: conf.MaxIterations, Rand: conf.Rand}
		if q.K < 1 {
			return nil, fmt.Errorf("kmeans filter: cluster count %d: %w", conf.K, quantize.ErrInvalidArgument)
		}
		return func(src image.Image) *image.NRGBA {
			return kmeansRecolor(logger, src, q)
		}, nil
	case Dominant:
		if conf.K < 1 {
			return nil, fmt.Errorf("dominant filter: color count %d: %w", conf.K, quantize.ErrInvalidArgument)
		}
		k := conf.K
		return func(src image.Image) *image.NRGBA {
			return dominantRecolor(src, k)
		}, nil
	case Palette:
		if len(conf.Palette) == 0 {
			return nil, fmt.Errorf("palette filter: empty palette: %w", quantize.ErrInvalidArgument)
		}
		pal := append(color.Palette(nil), conf.Palette...)
		return func(src image.Image) *image.NRGBA {
			return remap(src, pal)
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}
