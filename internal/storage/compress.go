package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
)

func stripCompression(name string) string {
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// Open opens path for reading, decompressing .gz and .zst files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{closerFunc(zr.Close), f}}, nil
	default:
		return f, nil
	}
}

// Create creates path for writing, compressing .gz and .zst files. Parent
// directories are created as needed. Close must be called to flush.
func Create(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(f)
		return &stackedWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
	default:
		return f, nil
	}
}

type closerFunc func()

func (fn closerFunc) Close() error {
	fn()
	return nil
}

// closeAll closes each closer in order and returns the first error.
func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (r *stackedReader) Close() error { return closeAll(r.closers) }

type stackedWriter struct {
	io.Writer
	closers []io.Closer
}

func (w *stackedWriter) Close() error { return closeAll(w.closers) }
