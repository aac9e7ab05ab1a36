package naf

import (
	"errors"
	"fmt"
	"io"
)

// Record is a single sequence record. Pointer fields are nil when the
// archive does not store the matching part.
type Record struct {
	// ID is the record identifier, i.e. the first word of the name
	// line.
	ID *string
	// Comment is the rest of the name line.
	Comment *string
	// Sequence is the raw sequence text, unwrapped.
	Sequence []byte
	// Quality is the per-symbol quality string. The format does not
	// mandate an encoding, so it may hold any line of the same length
	// as the sequence.
	Quality *string
	// Length is the sequence length in symbols.
	Length *uint64
}

// Validate checks the record's cross-field rules: the quality string,
// when present, must be exactly as long as the sequence, and Length,
// when present, must match both.
func (r *Record) Validate() error {
	if r.Sequence != nil && r.Quality != nil && len(*r.Quality) != len(r.Sequence) {
		return fmt.Errorf("quality length %d does not match sequence length %d",
			len(*r.Quality), len(r.Sequence))
	}
	if r.Length == nil {
		return nil
	}
	if r.Sequence != nil && *r.Length != uint64(len(r.Sequence)) {
		return fmt.Errorf("length %d does not match sequence length %d",
			*r.Length, len(r.Sequence))
	}
	if r.Quality != nil && *r.Length != uint64(len(*r.Quality)) {
		return fmt.Errorf("length %d does not match quality length %d",
			*r.Length, len(*r.Quality))
	}
	return nil
}

func (r *Record) name(sep byte) []byte {
	var name []byte
	if r.ID != nil {
		name = append(name, *r.ID...)
	}
	if r.Comment != nil {
		name = append(name, sep)
		name = append(name, *r.Comment...)
	}
	return name
}

// WriteFasta writes the record to w in FASTA format, joining the
// identifier and comment with sep and wrapping sequence lines at
// width symbols. A width of 0 writes the sequence on a single line.
func (r *Record) WriteFasta(w io.Writer, sep byte, width uint64) error {
	if r.Sequence == nil {
		return errors.New("record has no sequence")
	}
	if _, err := fmt.Fprintf(w, ">%s\n", r.name(sep)); err != nil {
		return err
	}
	seq := r.Sequence
	if width == 0 {
		width = uint64(len(seq))
	}
	for len(seq) > 0 {
		line := seq
		if uint64(len(line)) > width {
			line = line[:width]
		}
		if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
			return err
		}
		seq = seq[len(line):]
	}
	return nil
}

// WriteFastq writes the record to w in FASTQ format. The record must
// hold both a sequence and a quality string of matching length.
func (r *Record) WriteFastq(w io.Writer, sep byte) error {
	if r.Sequence == nil {
		return errors.New("record has no sequence")
	}
	if r.Quality == nil {
		return errors.New("record has no quality")
	}
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "@%s\n%s\n+\n%s\n", r.name(sep), r.Sequence, *r.Quality)
	return err
}

// MaskUnit is one run of a sequence mask: Length consecutive symbols
// that are either all masked or all unmasked.
type MaskUnit struct {
	Length uint64
	Masked bool
}

// Validate rejects empty runs, which cannot appear in a well-formed
// mask.
func (u MaskUnit) Validate() error {
	if u.Length == 0 {
		return errors.New("mask unit of length 0")
	}
	return nil
}
