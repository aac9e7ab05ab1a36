package naf

import "fmt"

// Size reports the byte size of one archive block, before and after
// compression.
type Size struct {
	block string
	// Original is the size of the block content before compression.
	Original uint64
	// Compressed is the size of the block as stored in the archive.
	Compressed uint64
}

// NewSize describes an uncompressed block: the stored size equals the
// original one.
func NewSize(block string, original uint64) Size {
	return Size{block: block, Original: original, Compressed: original}
}

// NewCompressedSize describes a compressed block.
func NewCompressedSize(block string, original, compressed uint64) Size {
	return Size{block: block, Original: original, Compressed: compressed}
}

// Block returns the block label, e.g. "ids" or "sequence".
func (s Size) Block() string { return s.block }

// String formats the size as "<block>: <original>" for uncompressed
// blocks, or "<block>: <compressed> / <original> (<ratio>%)" with the
// ratio printed to three decimal places.
func (s Size) String() string {
	if s.Compressed == s.Original {
		return fmt.Sprintf("%s: %d", s.block, s.Original)
	}
	ratio := float64(s.Compressed) / float64(s.Original) * 100
	return fmt.Sprintf("%s: %d / %d (%.3f%%)", s.block, s.Compressed, s.Original, ratio)
}
