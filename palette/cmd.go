package palette

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"texpack/quantize"

	"github.com/alecthomas/kong"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type CLICmd struct {
	Image         string `arg:"" help:"Image to learn the palette from" type:"existingfile"`
	Out           string `help:"RIFF PAL file to write. Defaults to the image name with a .pal extension"`
	K             int    `help:"Number of colors to learn" default:"4"`
	MaxIterations int    `help:"Stop k-means after this many iterations, 0 runs until convergence" default:"0"`
	Seed          uint64 `help:"Seed k-means for a reproducible palette, 0 picks a random seed" default:"0"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.K < 1 {
		return fmt.Errorf("invalid color count: %d", c.K)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("invalid iteration cap: %d", c.MaxIterations)
	}
	if c.Out == "" {
		c.Out = c.Image[:len(c.Image)-len(filepath.Ext(c.Image))] + ".pal"
	}
	return nil
}

func (c *CLICmd) Run() error {
	logger := slog.Default().With("file", c.Image)

	img, err := decodeFile(c.Image)
	if err != nil {
		return err
	}

	q := quantize.Quantizer{K: c.K, MaxIterations: c.MaxIterations}
	if c.Seed != 0 {
		q.Rand = rand.New(rand.NewPCG(c.Seed, 0))
	}
	res, err := q.Train(Points(img))
	if err != nil {
		return err
	}
	logger.Info("learned palette", "colors", len(res.Palette), "iterations", res.Iterations,
		"converged", res.Converged)

	pal := make(color.Palette, 0, len(res.Palette))
	for i, entry := range res.Palette {
		logger.Info("color", "index", i, "r", entry.R, "g", entry.G, "b", entry.B)
		pal = append(pal, color.RGBA{R: entry.R, G: entry.G, B: entry.B, A: 0xFF})
	}

	out, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("could not create palette file %q: %w", c.Out, err)
	}
	if _, err = WriteTo(out, []color.Palette{pal}); err != nil {
		out.Close()
		return fmt.Errorf("could not write palette file %q: %w", c.Out, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("could not close palette file %q: %w", c.Out, err)
	}

	logger.Info("saved palette", "dest", c.Out)
	return nil
}

// Points collects the RGB of every pixel of img, transparent ones included.
func Points(img image.Image) []quantize.Color {
	b := img.Bounds()
	points := make([]quantize.Color, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			points = append(points, quantize.Color{R: c.R, G: c.G, B: c.B})
		}
	}
	return points
}

func decodeFile(name string) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open image %q: %w", name, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode image %q: %w", name, err)
	}
	return img, nil
}
