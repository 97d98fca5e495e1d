// Package pack builds resource packs out of a folder of textures, one pack
// per filter.
package pack

import (
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"texpack/filter"
	"texpack/palette"
	"texpack/parallel"

	"github.com/alecthomas/kong"
)

var compressionLevels = map[string]png.CompressionLevel{
	"default": png.DefaultCompression,
	"none":    png.NoCompression,
	"speed":   png.BestSpeed,
	"best":    png.BestCompression,
}

type CLICmd struct {
	Textures      string        `help:"Folder holding the extracted textures" default:"textures"`
	Dest          string        `help:"Destination folder for generated packs" default:"."`
	Zip           bool          `help:"Write packs as zip archives" default:"true" negatable:""`
	Packs         []string      `help:"Packs to generate (${packs})" default:"Greyscale,Invert,Saturation,1-bit,Average,8bit,K-Means,Dominant"`
	Format        int           `help:"pack_format written to pack.mcmeta" default:"64"`
	Compression   string        `help:"PNG compression of generated textures" enum:"default,none,speed,best" default:"default"`
	K             int           `help:"Palette size of the K-Means and Dominant packs" default:"4" group:"kmeans"`
	MaxIterations int           `help:"Stop k-means after this many iterations, 0 runs until convergence" default:"0" group:"kmeans"`
	Seed          uint64        `help:"Seed k-means for reproducible packs, 0 picks a random seed per texture" default:"0" group:"kmeans"`
	Palette       string        `help:"Palette of the Palette pack (${palettes}), a list of #rrggbb colors or a PAL file in RIFF format" group:"palette"`
	Definitions   []Definition  `kong:"-"`
	PaletteColors color.Palette `kong:"-"`
}

// Vars returns the kong interpolation variables used in help strings.
func Vars() kong.Vars {
	names := make([]string, 0, len(Definitions))
	for _, def := range Definitions {
		names = append(names, def.Name)
	}
	return kong.Vars{
		"packs":    strings.Join(names, ", "),
		"palettes": strings.Join(palette.Names(), ", "),
	}
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	textures, err := filepath.Abs(c.Textures)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(textures); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid textures path %q: %w", c.Textures, err)
	}
	c.Textures = textures

	if c.Dest, err = filepath.Abs(c.Dest); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}

	if c.Format < 1 {
		return fmt.Errorf("invalid pack format: %d", c.Format)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("invalid iteration cap: %d", c.MaxIterations)
	}

	c.Definitions = c.Definitions[:0]
	for _, name := range c.Packs {
		def, err := Lookup(name)
		if err != nil {
			return err
		}
		switch def.Filter {
		case filter.KMeans, filter.Dominant:
			if c.K < 1 {
				return fmt.Errorf("pack %s needs a palette size of at least 1, got %d", def.Name, c.K)
			}
		case filter.Palette:
			if c.Palette == "" {
				return fmt.Errorf("pack %s needs --palette", def.Name)
			}
		}
		c.Definitions = append(c.Definitions, def)
	}
	if len(c.Definitions) == 0 {
		return fmt.Errorf("no packs selected")
	}

	if c.Palette != "" {
		if c.PaletteColors, err = palette.LoadPalette(c.Palette); err != nil {
			return err
		}
	}

	return nil
}

func (c *CLICmd) Run(worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	builder := Builder{
		Textures:    c.Textures,
		Dest:        c.Dest,
		Zip:         c.Zip,
		Format:      c.Format,
		Compression: compressionLevels[c.Compression],
	}

	for i, def := range c.Definitions {
		conf := filter.Config{
			K:             c.K,
			MaxIterations: c.MaxIterations,
			Palette:       c.PaletteColors,
			Logger:        slog.Default().With("pack", def.Name),
		}
		// each pack runs on one goroutine, so it can own its generator
		if c.Seed != 0 {
			conf.Rand = rand.New(rand.NewPCG(c.Seed, uint64(i)))
		}

		fn, err := filter.New(def.Filter, conf)
		if err != nil {
			wait()
			return fmt.Errorf("could not set up pack %s: %w", def.Name, err)
		}

		worker(def.Name, func() error {
			return builder.Generate(slog.Default(), def, fn)
		})
	}

	return wait()
}
