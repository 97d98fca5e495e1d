package pack

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// sink receives the files of one pack.
type sink interface {
	WriteFile(name string, write func(io.Writer) error) error
	Close() error
	// Discard drops whatever was written so far.
	Discard()
}

// zipSink writes a pack into a temporary archive that is renamed into place
// once closed successfully.
type zipSink struct {
	dest string
	file *os.File
	buf  *bufio.Writer
	zw   *zip.Writer
}

func newZipSink(dest string) (*zipSink, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return nil, fmt.Errorf("could not create temporary archive for %q: %w", dest, err)
	}

	buf := bufio.NewWriter(f)
	return &zipSink{
		dest: dest,
		file: f,
		buf:  buf,
		zw:   zip.NewWriter(buf),
	}, nil
}

func (s *zipSink) WriteFile(name string, write func(io.Writer) error) error {
	w, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("could not add %q to archive: %w", name, err)
	}
	return write(w)
}

func (s *zipSink) Close() (err error) {
	canRename := false
	defer func() {
		if defErr := s.file.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary archive %q: %w", s.file.Name(), defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(s.file.Name(), s.dest); defErr != nil {
				err = fmt.Errorf("could not rename archive to %q: %w", s.dest, defErr)
			}
		}
		if err != nil {
			if rmErr := os.Remove(s.file.Name()); rmErr != nil {
				slog.Error("could not remove temporary archive", "name", s.file.Name(), "error", rmErr)
			}
		}
	}()

	if err = s.zw.Close(); err != nil {
		return fmt.Errorf("could not finish archive %q: %w", s.dest, err)
	}
	if err = s.buf.Flush(); err != nil {
		return fmt.Errorf("could not write archive %q: %w", s.dest, err)
	}
	if err = s.file.Sync(); err != nil {
		return fmt.Errorf("could not flush archive %q: %w", s.dest, err)
	}

	canRename = true
	return nil
}

func (s *zipSink) Discard() {
	if err := s.file.Close(); err != nil {
		slog.Error("could not close temporary archive", "name", s.file.Name(), "error", err)
	}
	if err := os.Remove(s.file.Name()); err != nil {
		slog.Error("could not remove temporary archive", "name", s.file.Name(), "error", err)
	}
}

// dirSink writes a pack as a plain folder tree.
type dirSink struct {
	root string
}

func (s dirSink) WriteFile(name string, write func(io.Writer) error) (err error) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create folder for %q: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close %q: %w", path, closeErr)
		}
	}()

	buf := bufio.NewWriter(f)
	if err = write(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("could not write %q: %w", path, err)
	}
	return nil
}

func (dirSink) Close() error {
	return nil
}

func (dirSink) Discard() {}
