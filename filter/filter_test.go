package filter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"texpack/disperse"
	"texpack/quantize"

	"github.com/cenkalti/dominantcolor"
)

// --- Helpers ---

func makeGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x*7 + y*13) % 256),
				A: uint8((x + y) * 40 % 256),
			})
		}
	}
	return img
}

func mustNew(t *testing.T, kind Kind, conf Config) Func {
	t.Helper()
	f, err := New(kind, conf)
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	return f
}

func opaqueColors(img *image.NRGBA) map[color.NRGBA]struct{} {
	set := map[color.NRGBA]struct{}{}
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] > 0 {
			set[color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]}] = struct{}{}
		}
	}
	return set
}

// checkRecolored asserts that every visible pixel of dst is the nearest pal
// entry to the matching src pixel with alpha kept, and that transparent
// pixels are untouched.
func checkRecolored(t *testing.T, src, dst *image.NRGBA, pal []quantize.Color) {
	t.Helper()
	checkTransparentUntouched(t, src, dst)
	for i := 0; i < len(src.Pix); i += 4 {
		if src.Pix[i+3] == 0 {
			continue
		}
		c := quantize.Closest(quantize.Color{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2]}, pal)
		want := []uint8{c.R, c.G, c.B, src.Pix[i+3]}
		if !bytes.Equal(dst.Pix[i:i+4], want) {
			t.Fatalf("pixel %d = %v, want %v", i/4, dst.Pix[i:i+4], want)
		}
	}
}

func checkTransparentUntouched(t *testing.T, src, dst *image.NRGBA) {
	t.Helper()
	for i := 0; i < len(src.Pix); i += 4 {
		if src.Pix[i+3] == 0 && !bytes.Equal(src.Pix[i:i+4], dst.Pix[i:i+4]) {
			t.Fatalf("transparent pixel %d changed from %v to %v", i/4, src.Pix[i:i+4], dst.Pix[i:i+4])
		}
	}
}

// --- Tests ---

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if got, err := ParseKind("KMeans"); err != nil || got != KMeans {
		t.Fatalf("ParseKind is case sensitive: %v, %v", got, err)
	}
	if _, err := ParseKind("sepia"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ParseKind(sepia) error = %v, want ErrUnknownKind", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, tc := range []struct {
		name string
		kind Kind
		conf Config
		want error
	}{
		{name: "kmeans_without_k", kind: KMeans, want: quantize.ErrInvalidArgument},
		{name: "dominant_negative_k", kind: Dominant, conf: Config{K: -1}, want: quantize.ErrInvalidArgument},
		{name: "palette_empty", kind: Palette, want: quantize.ErrInvalidArgument},
		{name: "unknown_kind", kind: Kind(99), want: ErrUnknownKind},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.kind, tc.conf); !errors.Is(err, tc.want) {
				t.Fatalf("New error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFiltersKeepInputAndBounds(t *testing.T) {
	src := makeGradient(9, 6)
	before := bytes.Clone(src.Pix)
	conf := Config{K: 3, MaxIterations: 50, Palette: color.Palette{color.Black, color.White}}

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			dst := mustNew(t, kind, conf)(src)
			if dst.Bounds() != src.Bounds() {
				t.Fatalf("bounds = %v, want %v", dst.Bounds(), src.Bounds())
			}
			if !bytes.Equal(src.Pix, before) {
				t.Fatalf("input was modified")
			}
			for i := 3; i < len(src.Pix); i += 4 {
				if dst.Pix[i] != src.Pix[i] {
					t.Fatalf("alpha of pixel %d changed from %d to %d", i/4, src.Pix[i], dst.Pix[i])
				}
			}
		})
	}
}

func TestInvertInvolution(t *testing.T) {
	src := makeGradient(16, 16)
	f := mustNew(t, Invert, Config{})
	once := f(src)
	if got := once.NRGBAAt(0, 0); got.R != 255-src.Pix[0] {
		t.Fatalf("inverted red = %d, want %d", got.R, 255-src.Pix[0])
	}
	if twice := f(once); !bytes.Equal(twice.Pix, src.Pix) {
		t.Fatalf("inverting twice did not give the original back")
	}
}

func TestPosterizeIdempotent(t *testing.T) {
	f := mustNew(t, Posterize, Config{})
	once := f(makeGradient(20, 20))
	if twice := f(once); !bytes.Equal(twice.Pix, once.Pix) {
		t.Fatalf("posterize is not idempotent")
	}
	for i := 0; i < len(once.Pix); i += 4 {
		if once.Pix[i]%disperse.RedStep != 0 || once.Pix[i+1]%disperse.GreenStep != 0 || once.Pix[i+2]%disperse.BlueStep != 0 {
			t.Fatalf("pixel %d = %v is off the grid", i/4, once.Pix[i:i+4])
		}
	}
}

func TestAverage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := range 4 {
		src.SetNRGBA(x, 0, color.NRGBA{255, 0, 0, 255})
		src.SetNRGBA(x, 1, color.NRGBA{1, 0, 0, 200})
	}
	src.SetNRGBA(3, 0, color.NRGBA{9, 8, 7, 0})
	src.SetNRGBA(3, 1, color.NRGBA{9, 8, 7, 0})

	dst := mustNew(t, Average, Config{})(src)
	checkTransparentUntouched(t, src, dst)
	for y := range 2 {
		for x := range 3 {
			got := dst.NRGBAAt(x, y)
			if got.R != 128 || got.G != 0 || got.B != 0 || got.A != src.NRGBAAt(x, y).A {
				t.Fatalf("pixel (%d,%d) = %v, want (128,0,0) with alpha %d", x, y, got, src.NRGBAAt(x, y).A)
			}
		}
	}
}

func TestAverageAllTransparent(t *testing.T) {
	src := makeGradient(4, 4)
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0
	}
	if dst := mustNew(t, Average, Config{})(src); !bytes.Equal(dst.Pix, src.Pix) {
		t.Fatalf("fully transparent image was changed")
	}
}

func TestGrayscale(t *testing.T) {
	src := makeGradient(8, 8)
	src.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	dst := mustNew(t, Grayscale, Config{})(src)
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != dst.Pix[i+1] || dst.Pix[i+1] != dst.Pix[i+2] {
			t.Fatalf("pixel %d = %v is not gray", i/4, dst.Pix[i:i+4])
		}
	}
	if got := dst.NRGBAAt(0, 0); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Fatalf("white became %v", got)
	}
}

func TestSaturate(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{200, 150, 150, 255})
	src.SetNRGBA(1, 0, color.NRGBA{90, 90, 90, 17})
	src.SetNRGBA(2, 0, color.NRGBA{0, 255, 0, 0})

	dst := mustNew(t, Saturate, Config{})(src)
	for x, want := range []color.NRGBA{
		{200, 100, 100, 255},
		{90, 90, 90, 17},
		{0, 255, 0, 0},
	} {
		if got := dst.NRGBAAt(x, 0); got != want {
			t.Errorf("pixel %d = %v, want %v", x, got, want)
		}
	}
}

func TestDitherMatchesDisperser(t *testing.T) {
	src := makeGradient(12, 7)
	got := mustNew(t, Dither, Config{})(src)
	if want := disperse.Dither(src); !bytes.Equal(got.Pix, want.Pix) {
		t.Fatalf("dither filter differs from disperse.Dither")
	}
}

func TestKMeansRecolor(t *testing.T) {
	src := makeGradient(16, 16)
	src.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 0})

	f := mustNew(t, KMeans, Config{K: 4, MaxIterations: 100, Rand: rand.New(rand.NewPCG(3, 4))})
	dst := f(src)

	points := make([]quantize.Color, 0, len(src.Pix)/4)
	for i := 0; i < len(src.Pix); i += 4 {
		points = append(points, quantize.Color{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2]})
	}
	q := quantize.Quantizer{K: 4, MaxIterations: 100, Rand: rand.New(rand.NewPCG(3, 4))}
	res, err := q.Train(points)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	checkRecolored(t, src, dst, res.Palette)
}

func TestKMeansRecolorTrainError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	src := makeGradient(4, 4)

	dst := kmeansRecolor(logger, src, quantize.Quantizer{K: 0})
	if !bytes.Equal(dst.Pix, src.Pix) {
		t.Fatalf("pixels changed although no palette could be learned")
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("training error was not logged: %q", buf.String())
	}
}

func TestKMeansConcurrent(t *testing.T) {
	src := makeGradient(8, 8)
	f := mustNew(t, KMeans, Config{K: 2, MaxIterations: 20})

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			if n := len(opaqueColors(f(src))); n > 2 {
				t.Errorf("got %d distinct visible colors, want at most 2", n)
			}
		})
	}
	wg.Wait()
}

func TestDominantRecolor(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			c := color.NRGBA{220, 30, 30, 255}
			if x >= 8 {
				c = color.NRGBA{30, 30, 220, 255}
			}
			if y == 15 {
				c = color.NRGBA{200, 60, 50, 70}
			}
			src.SetNRGBA(x, y, c)
		}
	}
	src.SetNRGBA(0, 0, color.NRGBA{5, 5, 5, 0})

	dst := mustNew(t, Dominant, Config{K: 2})(src)

	var pal []quantize.Color
	for _, c := range dominantcolor.FindWeight(opaque(src), 2) {
		pal = append(pal, quantize.Color{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B})
	}
	if len(pal) == 0 || len(pal) > 2 {
		t.Fatalf("got %d dominant colors, want 1 or 2", len(pal))
	}
	checkRecolored(t, src, dst, pal)
}

func TestOpaque(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 0})
	src.SetNRGBA(1, 0, color.NRGBA{200, 60, 50, 70})
	src.SetNRGBA(2, 0, color.NRGBA{1, 2, 3, 255})

	got := opaque(src)
	want := []uint8{10, 20, 30, 0, 200, 60, 50, 255, 1, 2, 3, 255}
	if !bytes.Equal(got.Pix, want) {
		t.Fatalf("opaque pixels = %v, want %v", got.Pix, want)
	}
	if src.Pix[7] != 70 {
		t.Fatalf("opaque modified its input")
	}
}

func TestPaletteRemap(t *testing.T) {
	src := makeGradient(10, 10)
	pal := color.Palette{color.NRGBA{0, 0, 0, 255}, color.NRGBA{255, 255, 255, 255}}
	dst := mustNew(t, Palette, Config{Palette: pal})(src)
	checkTransparentUntouched(t, src, dst)
	for c := range opaqueColors(dst) {
		if c != (color.NRGBA{0, 0, 0, 0}) && c != (color.NRGBA{255, 255, 255, 0}) {
			t.Fatalf("color %v is not in the palette", c)
		}
	}
}

func TestPaletteRemapTranslucent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{250, 250, 250, 40})
	pal := color.Palette{color.NRGBA{0, 0, 0, 255}, color.NRGBA{255, 255, 255, 255}}

	dst := mustNew(t, Palette, Config{Palette: pal})(src)
	if got, want := dst.NRGBAAt(0, 0), (color.NRGBA{255, 255, 255, 40}); got != want {
		t.Fatalf("translucent near-white = %v, want %v", got, want)
	}
}

func TestNonNRGBAInput(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 6, 7))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	dst := mustNew(t, Invert, Config{})(src)
	if dst.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", dst.Bounds(), src.Bounds())
	}
	if got := dst.NRGBAAt(2, 3); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Fatalf("inverted white = %v", got)
	}
}
