package naf

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nafformat/naf-go/hostio"
)

// A hand-assembled v1 archive with one record, holding an ids and a
// sequence part.
var archiveV1 = []byte{
	0x01, 0xF9, 0xEC, // magic
	0x01, // format version: v1
	0x22, // flags: sequence|ids
	0x20, // name separator: ' '
	0x3c, // line length: 60
	0x01, // number of sequences: 1
	// ids part: 4 bytes compressed into a 17 byte frame
	0x04, 0x11,
	0x28, 0xb5, 0x2f, 0xfd, 0x04, 0x00, 0x21, 0x00, 0x00,
	// "test"
	0x74, 0x65, 0x73, 0x74,
	0x39, 0x81, 0x67, 0xdb,
	// sequence part: 5 bytes compressed into an 18 byte frame
	0x05, 0x12,
	0x28, 0xb5, 0x2f, 0xfd, 0x04, 0x00, 0x29, 0x00, 0x00,
	// "test2"
	0x74, 0x65, 0x73, 0x74, 0x32,
	0x87, 0xeb, 0x11, 0x71,
}

// The same archive in format v2, with a title block in front of the
// parts.
var archiveV2Titled = []byte{
	0x01, 0xF9, 0xEC, // magic
	0x02, // format version: v2
	0x00, // sequence type: dna
	0x62, // flags: sequence|ids|title
	0x20, // name separator: ' '
	0x3c, // line length: 60
	0x01, // number of sequences: 1
	// title: "test data"
	0x09,
	0x74, 0x65, 0x73, 0x74, 0x20, 0x64, 0x61, 0x74, 0x61,
	// ids part
	0x04, 0x11,
	0x28, 0xb5, 0x2f, 0xfd, 0x04, 0x00, 0x21, 0x00, 0x00,
	0x74, 0x65, 0x73, 0x74,
	0x39, 0x81, 0x67, 0xdb,
	// sequence part
	0x05, 0x12,
	0x28, 0xb5, 0x2f, 0xfd, 0x04, 0x00, 0x29, 0x00, 0x00,
	0x74, 0x65, 0x73, 0x74, 0x32,
	0x87, 0xeb, 0x11, 0x71,
}

// buildArchive assembles a v2 archive holding the given parts, each
// compressed with zstd.
func buildArchive(t *testing.T, title string, sequences uint64, parts map[Flag][]byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, enc.Close()) }()

	flags := FlagsOf()
	if title != "" {
		flags.Set(FlagTitle)
	}
	for flag := range parts {
		flags.Set(flag)
	}

	raw := append([]byte(nil), magic...)
	raw = append(raw, byte(FormatV2), byte(DNA), flags.Byte(), ' ')
	raw = appendNumber(raw, 80)
	raw = appendNumber(raw, sequences)
	if title != "" {
		raw = appendNumber(raw, uint64(len(title)))
		raw = append(raw, title...)
	}
	for _, flag := range partOrder {
		payload, ok := parts[flag]
		if !ok {
			continue
		}
		compressed := enc.EncodeAll(payload, nil)
		raw = appendNumber(raw, uint64(len(payload)))
		raw = appendNumber(raw, uint64(len(compressed)))
		raw = append(raw, compressed...)
	}
	return raw
}

// seeklessFile reads like a MemFile but refuses random access, the
// way pipe and socket backed host objects do.
type seeklessFile struct {
	m *hostio.MemFile
}

func (f *seeklessFile) Read(n int) (any, error) { return f.m.Read(n) }

func (f *seeklessFile) Seek(int64, int) (any, error) {
	return nil, errors.New("unseekable stream")
}

func TestOpenArchiveFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.naf")
	require.NoError(t, os.WriteFile(path, archiveV1, 0o600))

	a, err := Open(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	hdr := a.Header()
	assert.Equal(t, FormatV1, hdr.FormatVersion())
	assert.Equal(t, DNA, hdr.SequenceType())
	assert.Equal(t, FlagsOf(FlagID, FlagSequence), hdr.Flags())
	assert.Equal(t, uint64(60), hdr.LineLength())
	assert.Equal(t, uint64(1), hdr.NumberOfSequences())
	assert.Empty(t, a.Title())

	require.Len(t, a.Parts(), 2)
	ids, ok := a.Part(FlagID)
	require.True(t, ok)
	assert.Equal(t, Part{Flag: FlagID, Offset: 10, OriginalSize: 4, CompressedSize: 17}, ids)

	seq, ok := a.Part(FlagSequence)
	require.True(t, ok)
	assert.Equal(t, Part{Flag: FlagSequence, Offset: 29, OriginalSize: 5, CompressedSize: 18}, seq)

	_, ok = a.Part(FlagQuality)
	assert.False(t, ok)

	r, err := a.RawPart(FlagID)
	require.NoError(t, err)
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, archiveV1[10:27], raw)
}

func TestOpenArchiveNotExist(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.naf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenHostArchive(t *testing.T) {
	t.Parallel()

	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(archiveV2Titled))
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	hdr := a.Header()
	assert.Equal(t, FormatV2, hdr.FormatVersion())
	assert.Equal(t, FlagsOf(FlagTitle, FlagID, FlagSequence), hdr.Flags())
	assert.Equal(t, "test data", a.Title())

	require.Len(t, a.Parts(), 2)
	ids, ok := a.Part(FlagID)
	require.True(t, ok)
	assert.Equal(t, Part{Flag: FlagID, Offset: 21, OriginalSize: 4, CompressedSize: 17}, ids)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	for flag, want := range map[Flag][]byte{
		FlagID:       []byte("test"),
		FlagSequence: []byte("test2"),
	} {
		r, err := a.RawPart(flag)
		require.NoError(t, err)
		raw, err := io.ReadAll(r)
		require.NoError(t, err)

		got, err := dec.DecodeAll(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.NoError(t, rt.TakePending())
}

func TestArchiveSizes(t *testing.T) {
	t.Parallel()

	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(archiveV2Titled))
	require.NoError(t, err)

	sizes := a.Sizes()
	require.Len(t, sizes, 3)
	assert.Equal(t, "title: 9", sizes[0].String())
	assert.Equal(t, "ids: 17 / 4 (425.000%)", sizes[1].String())
	assert.Equal(t, "sequence: 18 / 5 (360.000%)", sizes[2].String())
}

func TestArchiveSeeklessHost(t *testing.T) {
	t.Parallel()

	var rt hostio.Runtime
	file := &seeklessFile{m: hostio.NewMemFile(archiveV2Titled)}
	a, err := OpenHost(&rt, file)
	require.NoError(t, err)

	assert.Equal(t, "test data", a.Title())
	require.Len(t, a.Parts(), 2)

	// Listing the layout works without random access, reading a
	// payload does not.
	_, err = a.RawPart(FlagID)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestArchiveHeaderOnly(t *testing.T) {
	t.Parallel()

	raw := []byte{
		0x01, 0xF9, 0xEC, // magic
		0x01, // format version: v1
		0x00, // flags: none
		0x20, // name separator: ' '
		0x3c, // line length: 60
		0x00, // number of sequences: 0
	}
	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(raw))
	require.NoError(t, err)

	assert.Empty(t, a.Parts())
	assert.Empty(t, a.Sizes())
	assert.Empty(t, a.Title())
}

func TestArchiveRejectsExtended(t *testing.T) {
	t.Parallel()

	raw := []byte{
		0x01, 0xF9, 0xEC,
		0x01,
		0x80, // flags: extended
		0x20,
		0x3c,
		0x00,
	}
	var rt hostio.Runtime
	_, err := OpenHost(&rt, hostio.NewMemFile(raw))
	assert.ErrorContains(t, err, "extended archives are not supported")
}

func TestArchiveCorrupt(t *testing.T) {
	t.Parallel()

	titleTooLong := []byte{
		0x01, 0xF9, 0xEC, 0x01, 0x40, 0x20, 0x3c, 0x00,
		// title length: 2097152
		0x81, 0x80, 0x80, 0x00,
	}
	sizeOverflow := []byte{
		0x01, 0xF9, 0xEC, 0x01, 0x20, 0x20, 0x3c, 0x01,
		// ids sizes: original 4, compressed 2^64-1
		0x04,
		0x81, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f,
	}

	tests := []struct {
		name string
		raw  []byte
		msg  string
	}{
		{
			name: "cut title",
			raw:  archiveV2Titled[:12],
			msg:  "reading title",
		},
		{
			name: "title too long",
			raw:  titleTooLong,
			msg:  "title length 2097152 exceeds 1048576",
		},
		{
			name: "cut part sizes",
			raw:  archiveV1[:9],
			msg:  "reading ids compressed size",
		},
		{
			name: "missing part sizes",
			raw:  archiveV1[:8],
			msg:  "reading ids original size",
		},
		{
			name: "size overflow",
			raw:  sizeOverflow,
			msg:  "ids part size 18446744073709551615 overflows the source offset",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var rt hostio.Runtime
			_, err := OpenHost(&rt, hostio.NewMemFile(tc.raw))
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestArchiveCorruptSeekless(t *testing.T) {
	t.Parallel()

	// Without random access the scanner drains payloads, so a cut
	// payload surfaces at open time.
	var rt hostio.Runtime
	file := &seeklessFile{m: hostio.NewMemFile(archiveV1[:20])}
	_, err := OpenHost(&rt, file)
	require.Error(t, err)
	assert.ErrorContains(t, err, "skipping ids payload")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestArchiveRawPartMissing(t *testing.T) {
	t.Parallel()

	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(archiveV1))
	require.NoError(t, err)

	_, err = a.RawPart(FlagQuality)
	assert.ErrorContains(t, err, "archive has no quality part")
}

func TestArchiveRawPartRereads(t *testing.T) {
	t.Parallel()

	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(archiveV1))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		r, err := a.RawPart(FlagSequence)
		require.NoError(t, err)
		raw, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, archiveV1[29:47], raw)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := map[Flag][]byte{
		FlagID:       []byte("r1\nr2\nr3\n"),
		FlagLength:   {0x04, 0x00, 0x04, 0x00, 0x04, 0x00},
		FlagSequence: bytes.Repeat([]byte("ACGT"), 512),
		FlagQuality:  bytes.Repeat([]byte("I"), 2048),
	}
	raw := buildArchive(t, "round trip", 3, payloads)

	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(raw))
	require.NoError(t, err)

	assert.Equal(t, "round trip", a.Title())
	assert.Equal(t, uint64(3), a.Header().NumberOfSequences())

	parts := a.Parts()
	require.Len(t, parts, 4)
	assert.Equal(t,
		[]Flag{FlagID, FlagLength, FlagSequence, FlagQuality},
		[]Flag{parts[0].Flag, parts[1].Flag, parts[2].Flag, parts[3].Flag})

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	for flag, want := range payloads {
		r, err := a.RawPart(flag)
		require.NoError(t, err)

		raw, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, uint64(len(raw)), mustPart(t, a, flag).CompressedSize)

		got, err := dec.DecodeAll(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got, "part %s", flag)
	}
}

func mustPart(t *testing.T, a *Archive, flag Flag) Part {
	t.Helper()
	p, ok := a.Part(flag)
	require.True(t, ok)
	return p
}

func TestArchiveTruncatedPayloadSeekable(t *testing.T) {
	t.Parallel()

	// A seekable source cut inside the last payload opens cleanly,
	// since the scan trusts the part table, but the short read must
	// not end in a clean EOF.
	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(archiveV1[:40]))
	require.NoError(t, err)

	r, err := a.RawPart(FlagSequence)
	require.NoError(t, err)
	raw, err := io.ReadAll(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Len(t, raw, 11)
}

func TestArchiveMidStreamStart(t *testing.T) {
	t.Parallel()

	// An archive embedded after other data: the host object is handed
	// over positioned at the archive, not at offset zero.
	raw := append([]byte("leading junk"), archiveV1...)
	file := hostio.NewMemFile(raw)
	_, err := file.Seek(int64(len("leading junk")), io.SeekStart)
	require.NoError(t, err)

	var rt hostio.Runtime
	a, err := OpenHost(&rt, file)
	require.NoError(t, err)

	ids, ok := a.Part(FlagID)
	require.True(t, ok)
	assert.Equal(t, int64(10), ids.Offset)

	r, err := a.RawPart(FlagID)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, archiveV1[10:27], got)
}

func TestArchiveTrailingBytes(t *testing.T) {
	t.Parallel()

	// Bytes after the last part are outside the archive layout and
	// are left untouched.
	raw := append(append([]byte(nil), archiveV1...), "garbage"...)
	var rt hostio.Runtime
	a, err := OpenHost(&rt, hostio.NewMemFile(raw))
	require.NoError(t, err)
	require.Len(t, a.Parts(), 2)
}
