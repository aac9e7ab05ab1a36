package naf

import (
	"errors"
	"io"
	"os"
)

var errNoSource = errors.New("source has no backing stream")

// Source is the byte source an archive is read from: either a native
// file or a stream owned by an embedding host runtime. Readers go
// through it without caring which variant backs it.
type Source struct {
	file    *os.File
	foreign *ForeignStream
}

var (
	_ io.ReadSeeker = (*Source)(nil)
	_ io.Closer     = (*Source)(nil)
)

// NewFileSource wraps a native file. Closing the source closes the
// file.
func NewFileSource(f *os.File) *Source {
	return &Source{file: f}
}

// NewForeignSource wraps a host-owned stream. Closing the source is a
// no-op, since the host controls the object's lifetime.
func NewForeignSource(s *ForeignStream) *Source {
	return &Source{foreign: s}
}

func (s *Source) Read(p []byte) (int, error) {
	switch {
	case s.file != nil:
		return s.file.Read(p)
	case s.foreign != nil:
		return s.foreign.Read(p)
	}
	return 0, errNoSource
}

func (s *Source) Seek(offset int64, whence int) (int64, error) {
	switch {
	case s.file != nil:
		return s.file.Seek(offset, whence)
	case s.foreign != nil:
		return s.foreign.Seek(offset, whence)
	}
	return 0, errNoSource
}

func (s *Source) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
