package naf

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/nafformat/naf-go/hostio"
)

// ForeignStream adapts a host-owned file-like object into an
// io.ReadSeeker. Every call into the object happens under the host
// runtime's global lock, and host failures are reinterpreted as
// native errors; raw host errors that cannot be expressed natively
// are parked on the runtime for the host-facing caller to pick up.
//
// The stream does not own the object and has no Close: the host
// releases the object through its own lifecycle.
type ForeignStream struct {
	rt   *hostio.Runtime
	file hostio.File
}

var _ io.ReadSeeker = (*ForeignStream)(nil)

// NewForeignStream validates file and wraps it. Validation asks the
// object for zero bytes and requires a byte slice back, so objects
// producing the wrong value kind (e.g. files opened in a text mode)
// are rejected up front without consuming input.
func NewForeignStream(rt *hostio.Runtime, file hostio.File) (*ForeignStream, error) {
	if rt == nil {
		return nil, errors.New("nil host runtime")
	}
	if file == nil {
		return nil, errors.New("nil host file")
	}
	s := &ForeignStream{rt: rt, file: file}
	if _, err := s.hostRead(0); err != nil {
		return nil, err
	}
	return s, nil
}

// hostRead calls the object's read method under the runtime lock and
// validates the result.
func (s *ForeignStream) hostRead(n int) ([]byte, error) {
	s.rt.Lock()
	res, err := s.file.Read(n)
	s.rt.Unlock()
	if err != nil {
		return nil, reinterpretHostError(s.rt, "read", err)
	}
	b, ok := res.([]byte)
	if !ok {
		terr := &TypeError{Want: "bytes", Got: typeName(res)}
		s.rt.Restore(terr)
		return nil, terr
	}
	if len(b) > n {
		return nil, fmt.Errorf("host read returned %d bytes, want at most %d", len(b), n)
	}
	return b, nil
}

func (s *ForeignStream) Read(p []byte) (int, error) {
	b, err := s.hostRead(len(p))
	if err != nil {
		return 0, err
	}
	copy(p, b)
	if len(b) == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return len(b), nil
}

// Seek repositions the host object. Hosts commonly hand out objects
// without meaningful random access, so any host-side seek failure is
// reported as errors.ErrUnsupported with the host's message attached.
func (s *ForeignStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	s.rt.Lock()
	res, err := s.file.Seek(offset, whence)
	s.rt.Unlock()
	if err != nil {
		return 0, fmt.Errorf("%w: host seek failed: %v", errors.ErrUnsupported, err)
	}
	var pos int64
	switch v := res.(type) {
	case int:
		pos = int64(v)
	case int64:
		pos = v
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("host seek position %d overflows int64", v)
		}
		pos = int64(v)
	default:
		terr := &TypeError{Want: "int", Got: typeName(res)}
		s.rt.Restore(terr)
		return 0, terr
	}
	if pos < 0 {
		return 0, fmt.Errorf("host seek returned negative position %d", pos)
	}
	return pos, nil
}
