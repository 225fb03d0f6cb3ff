package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxLineSize bounds a single input line.
const MaxLineSize = 4 * 1024 * 1024

// ReaderSource implements LineSource over an io.Reader.
type ReaderSource struct {
	name    string
	scanner *bufio.Scanner
	closer  io.Closer
	lineNum int
}

// NewReaderSource creates a LineSource reading from r. If r is also an
// io.Closer it is closed by Close.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	s := &ReaderSource{name: name, scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Name returns the stream name.
func (s *ReaderSource) Name() string {
	return s.name
}

// Next returns the next line.
func (s *ReaderSource) Next(ctx context.Context) (*Line, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.scanner.Scan() {
		s.lineNum++
		return &Line{
			Text:   s.scanner.Text(),
			Source: s.name,
			Num:    s.lineNum,
		}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.name, err)
	}
	return nil, io.EOF
}

// Close releases the underlying reader if it is closable.
func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// FileSource implements LineSource for a log file on disk. Files ending in
// .gz or .zst are decompressed transparently. The file is opened on the
// first call to Next.
type FileSource struct {
	path string

	file    *os.File
	decoder io.Closer
	reader  *ReaderSource
	opened  bool
}

// NewFileSource creates a LineSource that reads from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path.
func (s *FileSource) Name() string {
	return s.path
}

// Next returns the next line. Returns io.EOF when the file is exhausted.
func (s *FileSource) Next(ctx context.Context) (*Line, error) {
	if !s.opened {
		s.opened = true
		if err := s.open(); err != nil {
			return nil, err
		}
	}
	if s.reader == nil {
		return nil, io.EOF
	}
	return s.reader.Next(ctx)
}

// Close releases the decompressor and the file.
func (s *FileSource) Close() error {
	s.reader = nil
	if s.decoder != nil {
		_ = s.decoder.Close()
		s.decoder = nil
	}
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", s.path, err)
	}
	s.file = f

	var r io.Reader = f
	switch {
	case strings.HasSuffix(s.path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = s.Close()
			return fmt.Errorf("opening gzip stream %s: %w", s.path, err)
		}
		s.decoder = gz
		r = gz
	case strings.HasSuffix(s.path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = s.Close()
			return fmt.Errorf("opening zstd stream %s: %w", s.path, err)
		}
		s.decoder = closerFunc(func() error { zr.Close(); return nil })
		r = zr
	}

	// The reader must not close the file itself; Close handles ordering.
	s.reader = NewReaderSource(s.path, io.NopCloser(r))
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
