package naf

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Flag marks one optional content part of an archive. Each flag
// occupies one bit of the header flags byte.
type Flag uint8

const (
	// FlagQuality indicates the archive stores sequence qualities.
	FlagQuality Flag = 0x01
	// FlagSequence indicates the archive stores sequences.
	FlagSequence Flag = 0x02
	// FlagMask indicates the archive stores sequence masks.
	FlagMask Flag = 0x04
	// FlagLength indicates the archive stores sequence lengths.
	FlagLength Flag = 0x08
	// FlagComment indicates the archive stores sequence comments.
	FlagComment Flag = 0x10
	// FlagID indicates the archive stores sequence identifiers.
	FlagID Flag = 0x20
	// FlagTitle indicates the archive has a title.
	FlagTitle Flag = 0x40
	// FlagExtended is reserved for future extensions of the format.
	FlagExtended Flag = 0x80
)

// FlagValues returns every individual flag, lowest bit first.
func FlagValues() []Flag {
	return []Flag{
		FlagQuality,
		FlagSequence,
		FlagMask,
		FlagLength,
		FlagComment,
		FlagID,
		FlagTitle,
		FlagExtended,
	}
}

func (f Flag) String() string {
	switch f {
	case FlagQuality:
		return "quality"
	case FlagSequence:
		return "sequence"
	case FlagMask:
		return "mask"
	case FlagLength:
		return "lengths"
	case FlagComment:
		return "comments"
	case FlagID:
		return "ids"
	case FlagTitle:
		return "title"
	case FlagExtended:
		return "extended"
	}
	return fmt.Sprintf("flag(0x%02x)", uint8(f))
}

// Flags is the set of optional content parts present in an archive,
// stored as a single byte in the header.
type Flags uint8

// FlagsOf builds a set from individual flags.
func FlagsOf(flags ...Flag) Flags {
	var f Flags
	for _, flag := range flags {
		f.Set(flag)
	}
	return f
}

// Test reports whether flag is set.
func (f Flags) Test(flag Flag) bool { return uint8(f)&uint8(flag) != 0 }

// Set adds flag to the set.
func (f *Flags) Set(flag Flag) { *f |= Flags(flag) }

// Unset removes flag from the set.
func (f *Flags) Unset(flag Flag) { *f &^= Flags(flag) }

// Union returns the set holding every flag of f and g.
func (f Flags) Union(g Flags) Flags { return f | g }

// Byte returns the set as the byte stored in the header.
func (f Flags) Byte() uint8 { return uint8(f) }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var set []string
	for _, flag := range FlagValues() {
		if f.Test(flag) {
			set = append(set, flag.String())
		}
	}
	return strings.Join(set, "|")
}

func (f Flags) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, flag := range FlagValues() {
		enc.AddBool(flag.String(), f.Test(flag))
	}
	return nil
}
