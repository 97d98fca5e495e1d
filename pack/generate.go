package pack

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"texpack/filter"
)

// Builder turns a folder of textures into resource packs.
type Builder struct {
	// Textures is the folder holding the textures, laid out as under
	// assets/minecraft/textures in the game jar, plus an optional pack.png.
	Textures string
	// Dest is the folder packs are written to.
	Dest string
	// Zip writes <Dest>/<Name>.zip instead of the <Dest>/<Name> folder.
	Zip bool
	// Format is the pack_format advertised in pack.mcmeta.
	Format int
	// Compression is the PNG compression level of the output textures.
	Compression png.CompressionLevel
}

// Generate writes the pack described by def, running fn over every PNG file
// under b.Textures. Files that cannot be decoded or written are logged and
// counted; the pack is still finished and an error reports the count.
func (b Builder) Generate(logger *slog.Logger, def Definition, fn filter.Func) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("pack", def.Name)

	var out sink
	if b.Zip {
		var err error
		if out, err = newZipSink(filepath.Join(b.Dest, def.Name+".zip")); err != nil {
			return err
		}
	} else {
		out = dirSink{root: filepath.Join(b.Dest, def.Name)}
	}
	closed := false
	defer func() {
		if !closed {
			out.Discard()
		}
	}()

	enc := png.Encoder{
		CompressionLevel: b.Compression,
		BufferPool:       pngPool,
	}

	var processed, skipped, failed int
	walkErr := filepath.WalkDir(b.Textures, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fileLog := logger.With("file", filePath)
		if !strings.EqualFold(filepath.Ext(filePath), ".png") {
			skipped++
			fileLog.Warn("skipping non-PNG file")
			return nil
		}

		name, err := entryName(b.Textures, filePath)
		if err != nil {
			return err
		}

		img, err := decode(filePath)
		if err != nil {
			failed++
			fileLog.Error("could not decode image", "error", err)
			return nil
		}

		result := fn(img)
		if err := out.WriteFile(name, func(w io.Writer) error {
			return enc.Encode(w, result)
		}); err != nil {
			failed++
			fileLog.Error("could not write image", "entry", name, "error", err)
			return nil
		}

		processed++
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("could not walk textures folder %q: %w", b.Textures, walkErr)
	}

	meta, err := mcmeta(def.Description, b.Format)
	if err != nil {
		return fmt.Errorf("could not render pack.mcmeta: %w", err)
	}
	if err = out.WriteFile("pack.mcmeta", func(w io.Writer) error {
		_, err := w.Write(meta)
		return err
	}); err != nil {
		return fmt.Errorf("could not write pack.mcmeta: %w", err)
	}

	closed = true
	if err = out.Close(); err != nil {
		return err
	}

	logger.Info("stats", "processed", processed, "skipped", skipped, "errors", failed,
		"total", processed+skipped+failed)

	if failed > 0 {
		return fmt.Errorf("%w: %d", errFiles, failed)
	}
	return nil
}

var errFiles = errors.New("error processing files")

// entryName maps a texture file to its slash separated path inside the pack.
// The top level pack.png is the pack icon; everything else lives under
// assets/minecraft/textures.
func entryName(root, filePath string) (string, error) {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return "", fmt.Errorf("could not resolve %q against %q: %w", filePath, root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "pack.png" {
		return rel, nil
	}
	return path.Join("assets", "minecraft", "textures", rel), nil
}

func decode(filePath string) (img image.Image, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open image: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("could not close image", "name", filePath, "error", closeErr)
		}
	}()

	return png.Decode(f)
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

// pngPool is shared by the encoders of all packs.
var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
