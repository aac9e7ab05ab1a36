package naf

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nafformat/naf-go/hostio"
)

// maxTitleSize caps the title block so a corrupt length cannot make
// the scanner allocate unbounded memory.
const maxTitleSize = 1 << 20

// partOrder is the order content parts are laid out in after the
// title: descending flag bit.
var partOrder = []Flag{
	FlagID,
	FlagComment,
	FlagLength,
	FlagMask,
	FlagSequence,
	FlagQuality,
}

// Part describes one compressed content part as stored in the source.
type Part struct {
	// Flag identifies which content the part stores.
	Flag Flag
	// Offset is the compressed payload's offset from the start of the
	// archive.
	Offset int64
	// OriginalSize is the payload size before compression.
	OriginalSize uint64
	// CompressedSize is the payload size as stored.
	CompressedSize uint64
}

func (p *Part) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Flag", p.Flag.String())
	enc.AddInt64("Offset", p.Offset)
	enc.AddUint64("OriginalSize", p.OriginalSize)
	enc.AddUint64("CompressedSize", p.CompressedSize)
	return nil
}

// Archive reads the framing of a NAF archive: the header, the title
// and the table of compressed parts. Payloads are not interpreted;
// RawPart hands out the stored bytes for the caller to decompress.
type Archive struct {
	src *Source
	o   archiveOptions

	// base is the source offset the scan started at. Part offsets are
	// relative to it, so an archive handed over mid-stream still seeks
	// to the right payloads.
	base int64

	header Header
	title  string
	parts  []Part
}

// Open opens the archive at path through a native file source.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := NewArchive(NewFileSource(f), opts...)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return a, nil
}

// OpenHost opens an archive from a file-like object owned by the host
// runtime rt. The object is validated and adapted the same way as
// NewForeignStream.
func OpenHost(rt *hostio.Runtime, file hostio.File, opts ...Option) (*Archive, error) {
	s, err := NewForeignStream(rt, file)
	if err != nil {
		return nil, err
	}
	return NewArchive(NewForeignSource(s), opts...)
}

// NewArchive scans the archive layout from src, which must be
// positioned at the start of the archive. Sources that cannot seek
// are scanned by draining the payload bytes instead, so RawPart is
// the only operation requiring random access.
func NewArchive(src *Source, opts ...Option) (*Archive, error) {
	a := &Archive{src: src}
	a.o.setDefault()
	for _, opt := range opts {
		if err := opt(&a.o); err != nil {
			return nil, err
		}
	}
	if err := a.scan(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) scan() error {
	if pos, err := a.src.Seek(0, io.SeekCurrent); err == nil {
		a.base = pos
	} else if !errors.Is(err, errors.ErrUnsupported) {
		return fmt.Errorf("locating archive start: %w", err)
	}

	cr := &countingReader{r: a.src}

	hdr, err := readHeader(cr)
	if err != nil {
		return err
	}
	a.header = hdr
	a.o.logger.Debug("scanned archive header", zap.Object("header", hdr))

	if hdr.flags.Test(FlagExtended) {
		return errors.New("extended archives are not supported")
	}

	if hdr.flags.Test(FlagTitle) {
		n, err := readNumber(cr)
		if err != nil {
			return fmt.Errorf("reading title length: %w", noEOF(err))
		}
		if n > maxTitleSize {
			return fmt.Errorf("title length %d exceeds %d", n, maxTitleSize)
		}
		title := make([]byte, n)
		if _, err := io.ReadFull(cr, title); err != nil {
			return fmt.Errorf("reading title: %w", noEOF(err))
		}
		a.title = string(title)
	}

	for _, flag := range partOrder {
		if !hdr.flags.Test(flag) {
			continue
		}
		original, err := readNumber(cr)
		if err != nil {
			return fmt.Errorf("reading %s original size: %w", flag, noEOF(err))
		}
		compressed, err := readNumber(cr)
		if err != nil {
			return fmt.Errorf("reading %s compressed size: %w", flag, noEOF(err))
		}
		if compressed > math.MaxInt64 || int64(compressed) > math.MaxInt64-cr.n {
			return fmt.Errorf("%s part size %d overflows the source offset", flag, compressed)
		}
		part := Part{
			Flag:           flag,
			Offset:         cr.n,
			OriginalSize:   original,
			CompressedSize: compressed,
		}
		a.o.logger.Debug("scanned archive part", zap.Object("part", &part))
		a.parts = append(a.parts, part)

		if err := a.skip(cr, int64(compressed)); err != nil {
			return fmt.Errorf("skipping %s payload: %w", flag, err)
		}
	}
	return nil
}

// skip advances the source past n payload bytes. It prefers a
// relative seek and falls back to draining when the source has no
// random access.
func (a *Archive) skip(cr *countingReader, n int64) error {
	if n == 0 {
		return nil
	}
	if _, err := a.src.Seek(n, io.SeekCurrent); err == nil {
		cr.n += n
		return nil
	} else if !errors.Is(err, errors.ErrUnsupported) {
		return err
	}
	if _, err := io.CopyN(io.Discard, cr, n); err != nil {
		return noEOF(err)
	}
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header { return a.header }

// Title returns the archive title, or "" when the archive has none.
func (a *Archive) Title() string { return a.title }

// Parts returns every content part in storage order.
func (a *Archive) Parts() []Part {
	return append([]Part(nil), a.parts...)
}

// Part returns the content part identified by flag.
func (a *Archive) Part(flag Flag) (Part, bool) {
	for _, p := range a.parts {
		if p.Flag == flag {
			return p, true
		}
	}
	return Part{}, false
}

// Sizes reports the stored size of every block present, title first,
// then the parts in storage order.
func (a *Archive) Sizes() []Size {
	var sizes []Size
	if a.header.flags.Test(FlagTitle) {
		sizes = append(sizes, NewSize("title", uint64(len(a.title))))
	}
	for _, p := range a.parts {
		sizes = append(sizes, NewCompressedSize(p.Flag.String(), p.OriginalSize, p.CompressedSize))
	}
	return sizes
}

// RawPart positions the source at the payload of flag's part and
// returns a reader over exactly the stored bytes, compressed as they
// are. A source that runs out before CompressedSize bytes fails the
// read with io.ErrUnexpectedEOF. The reader shares the archive's
// cursor: it is only valid until the next RawPart call. Sources
// without random access fail here with an error wrapping
// errors.ErrUnsupported.
func (a *Archive) RawPart(flag Flag) (io.Reader, error) {
	p, ok := a.Part(flag)
	if !ok {
		return nil, fmt.Errorf("archive has no %s part", flag)
	}
	if _, err := a.src.Seek(a.base+p.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to %s payload: %w", flag, err)
	}
	return &partReader{r: a.src, remain: int64(p.CompressedSize)}, nil
}

// Close releases the underlying source. Host-owned sources are left
// to the host and only native files are closed.
func (a *Archive) Close() error {
	return a.src.Close()
}

// partReader serves exactly remain stored bytes. The scan trusts the
// part table's sizes, so a source that ends early is a truncated
// archive and reads fail with io.ErrUnexpectedEOF instead of a clean
// end of part.
type partReader struct {
	r      io.Reader
	remain int64
}

func (p *partReader) Read(b []byte) (int, error) {
	if p.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(b)) > p.remain {
		b = b[:p.remain]
	}
	n, err := p.r.Read(b)
	p.remain -= int64(n)
	if err == io.EOF && p.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
