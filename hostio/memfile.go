package hostio

import (
	"fmt"
	"io"
)

// MemFile is a well-behaved in-memory File backed by a byte slice.
// It follows the host conventions exactly: Read returns a fresh
// []byte of at most n bytes and Seek returns the new position as an
// integer. It is handy for tests and for feeding an archive held in
// memory through the host path.
type MemFile struct {
	data []byte
	off  int64
}

var _ File = (*MemFile)(nil)

// NewMemFile returns a MemFile reading from data. The slice is not
// copied; the caller must not mutate it while the file is in use.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{data: data}
}

func (m *MemFile) Read(n int) (any, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read size %d", n)
	}
	if m.off >= int64(len(m.data)) {
		return []byte{}, nil
	}
	end := m.off + int64(n)
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}
	b := make([]byte, end-m.off)
	copy(b, m.data[m.off:end])
	m.off = end
	return b, nil
}

func (m *MemFile) Seek(offset int64, whence int) (any, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.off + offset
	case io.SeekEnd:
		pos = int64(len(m.data)) + offset
	default:
		return nil, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return nil, fmt.Errorf("negative position %d", pos)
	}
	m.off = pos
	return pos, nil
}
