// Package extract copies the textures out of a game client jar.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/klauspost/compress/zip"
)

type CLICmd struct {
	Jar  string `arg:"" help:"Client jar to read textures from" type:"existingfile"`
	Dest string `help:"Folder to extract the textures folder into" default:"."`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	jar, err := filepath.Abs(c.Jar)
	if err != nil {
		return fmt.Errorf("invalid jar path %q: %w", c.Jar, err)
	}
	c.Jar = jar

	if c.Dest, err = filepath.Abs(c.Dest); err != nil {
		return fmt.Errorf("invalid destination path %q: %w", c.Dest, err)
	}
	return nil
}

func (c *CLICmd) Run() error {
	n, err := Textures(c.Jar, c.Dest)
	if err != nil {
		return err
	}
	slog.Info("stats", "extracted", n, "dest", filepath.Join(c.Dest, "textures"))
	return nil
}

// Textures writes every PNG entry of the jar at jarPath below dest/textures
// and returns how many were written. assets/minecraft/textures/x.png becomes
// textures/x.png and the jar's pack.png becomes textures/pack.png.
func Textures(jarPath, dest string) (int, error) {
	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		return 0, fmt.Errorf("could not open jar %q: %w", jarPath, err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil {
			slog.Error("could not close jar", "name", jarPath, "error", closeErr)
		}
	}()

	var count int
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".png") {
			continue
		}

		name, ok := targetName(f.Name)
		if !ok {
			return count, fmt.Errorf("malformed path in jar: %q", f.Name)
		}
		if name == "" {
			continue
		}

		if err := extractFile(f, filepath.Join(dest, filepath.FromSlash(name))); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// targetName maps a jar entry to its path under dest. ok is false for names
// that are absolute or climb out of the archive; an empty name means the
// entry is not wanted.
func targetName(entry string) (name string, ok bool) {
	if entry == "" || strings.Contains(entry, `\`) || path.IsAbs(entry) {
		return "", false
	}
	clean := path.Clean(entry)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}

	if clean == "pack.png" {
		return "textures/pack.png", true
	}

	// drop the two leading components, assets/<namespace>/
	parts := strings.SplitN(clean, "/", 3)
	if len(parts) < 3 {
		return "", true
	}
	return parts[2], true
}

func extractFile(f *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("could not create folder for %q: %w", target, err)
	}

	in, err := f.Open()
	if err != nil {
		return fmt.Errorf("could not open jar entry %q: %w", f.Name, err)
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close %q: %w", target, closeErr)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("could not copy %q to %q: %w", f.Name, target, err)
	}
	return nil
}
