package naf

import (
	"bytes"
	"fmt"
	"io"

	"go.uber.org/zap/zapcore"
)

// FormatVersion is the binary layout version of an archive.
type FormatVersion uint8

const (
	// FormatV1 is the original layout. It always stores DNA.
	FormatV1 FormatVersion = 1
	// FormatV2 extends the header with a sequence type byte.
	FormatV2 FormatVersion = 2
)

func (v FormatVersion) String() string {
	switch v {
	case FormatV1:
		return "v1"
	case FormatV2:
		return "v2"
	}
	return fmt.Sprintf("version(%d)", uint8(v))
}

// SequenceType is the alphabet of the sequences stored in an archive.
type SequenceType uint8

const (
	// DNA sequences use the ACGT alphabet plus ambiguity codes.
	DNA SequenceType = 0
	// RNA sequences use the ACGU alphabet plus ambiguity codes.
	RNA SequenceType = 1
	// Protein sequences use the IUPAC amino acid alphabet.
	Protein SequenceType = 2
	// Text sequences hold arbitrary text lines.
	Text SequenceType = 3
)

// IsNucleotide reports whether the type is DNA or RNA.
func (t SequenceType) IsNucleotide() bool { return t == DNA || t == RNA }

func (t SequenceType) String() string {
	switch t {
	case DNA:
		return "dna"
	case RNA:
		return "rna"
	case Protein:
		return "protein"
	case Text:
		return "text"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// magic identifies an archive. Every archive starts with these three
// bytes.
var magic = []byte{0x01, 0xF9, 0xEC}

// Header is the mandatory metadata block at the start of an archive.
// It is read-only once constructed.
type Header struct {
	formatVersion     FormatVersion
	sequenceType      SequenceType
	flags             Flags
	nameSeparator     byte
	lineLength        uint64
	numberOfSequences uint64
}

// DefaultHeader returns the header of an empty archive: format v1,
// DNA, no optional parts, space-separated names and 60 character
// lines.
func DefaultHeader() Header {
	return Header{
		formatVersion: FormatV1,
		sequenceType:  DNA,
		nameSeparator: ' ',
		lineLength:    60,
	}
}

// FormatVersion returns the archive's binary layout version.
func (h Header) FormatVersion() FormatVersion { return h.formatVersion }

// SequenceType returns the alphabet of the stored sequences. Format
// v1 archives always report DNA.
func (h Header) SequenceType() SequenceType { return h.sequenceType }

// Flags returns the set of content parts present in the archive.
func (h Header) Flags() Flags { return h.flags }

// NameSeparator returns the byte separating identifiers from comments
// on record name lines.
func (h Header) NameSeparator() byte { return h.nameSeparator }

// LineLength returns the line width sequences were wrapped at before
// encoding, or 0 if lines were of uneven length.
func (h Header) LineLength() uint64 { return h.lineLength }

// NumberOfSequences returns the number of records in the archive.
func (h Header) NumberOfSequences() uint64 { return h.numberOfSequences }

func (h Header) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("FormatVersion", h.formatVersion.String())
	enc.AddString("SequenceType", h.sequenceType.String())
	enc.AddUint8("NameSeparator", h.nameSeparator)
	enc.AddUint64("LineLength", h.lineLength)
	enc.AddUint64("NumberOfSequences", h.numberOfSequences)
	return enc.AddObject("Flags", h.flags)
}

// readHeader parses the mandatory header block: the three magic
// bytes, the format version, the sequence type (format v2 only), the
// flags byte, the name separator and the two variable-length numbers.
func readHeader(r io.Reader) (Header, error) {
	hdr := DefaultHeader()

	var m [3]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return hdr, fmt.Errorf("reading magic: %w", noEOF(err))
	}
	if !bytes.Equal(m[:], magic) {
		return hdr, fmt.Errorf("bad magic %x, not a naf archive", m[:])
	}

	version, err := readByte(r)
	if err != nil {
		return hdr, fmt.Errorf("reading format version: %w", err)
	}
	switch FormatVersion(version) {
	case FormatV1, FormatV2:
		hdr.formatVersion = FormatVersion(version)
	default:
		return hdr, fmt.Errorf("unsupported format version %d", version)
	}

	if hdr.formatVersion == FormatV2 {
		kind, err := readByte(r)
		if err != nil {
			return hdr, fmt.Errorf("reading sequence type: %w", err)
		}
		if kind > uint8(Text) {
			return hdr, fmt.Errorf("invalid sequence type %d", kind)
		}
		hdr.sequenceType = SequenceType(kind)
	}

	flags, err := readByte(r)
	if err != nil {
		return hdr, fmt.Errorf("reading flags: %w", err)
	}
	hdr.flags = Flags(flags)

	sep, err := readByte(r)
	if err != nil {
		return hdr, fmt.Errorf("reading name separator: %w", err)
	}
	hdr.nameSeparator = sep

	if hdr.lineLength, err = readNumber(r); err != nil {
		return hdr, fmt.Errorf("reading line length: %w", noEOF(err))
	}
	if hdr.numberOfSequences, err = readNumber(r); err != nil {
		return hdr, fmt.Errorf("reading sequence count: %w", noEOF(err))
	}
	return hdr, nil
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, noEOF(err)
	}
	return b[0], nil
}
