package layout

// Int is the integer representation chosen for a discriminant or a flags
// storage unit.
type Int uint8

const (
	U8 Int = iota
	U16
	U32
	U64
)

func (i Int) Size() uint32 {
	switch i {
	case U8:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	default:
		return 8
	}
}

func (i Int) Align() uint32 {
	return i.Size()
}

func (i Int) String() string {
	switch i {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	default:
		return "u64"
	}
}

// AlignTo rounds offset up to a multiple of align, which must be a power of
// two or zero.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Discriminant picks the narrowest tag for numCases cases:
// u8 for <=256 cases, u16 for <=65536, else u32.
func Discriminant(numCases int) Int {
	if numCases <= 1<<8 {
		return U8
	} else if numCases <= 1<<16 {
		return U16
	}
	return U32
}

// DiscriminantSize returns the byte width of Discriminant(numCases).
func DiscriminantSize(numCases int) uint32 {
	return Discriminant(numCases).Size()
}

// FlagsRepr is the storage of a flags value: a single u8 or u16, or Count
// u32 lanes when there are more than 16 flags.
type FlagsRepr struct {
	Int   Int
	Count int
}

// FlagsReprOf returns the representation for numFlags flags. Zero flags
// occupy no storage.
func FlagsReprOf(numFlags int) FlagsRepr {
	switch {
	case numFlags == 0:
		return FlagsRepr{Int: U32, Count: 0}
	case numFlags <= 8:
		return FlagsRepr{Int: U8, Count: 1}
	case numFlags <= 16:
		return FlagsRepr{Int: U16, Count: 1}
	default:
		return FlagsRepr{Int: U32, Count: (numFlags + 31) / 32}
	}
}

// Lanes is the number of flat i32 values the flags occupy.
func (r FlagsRepr) Lanes() int {
	return r.Count
}

func (r FlagsRepr) Info() Info {
	if r.Count == 0 {
		return Info{Size: 0, Align: 1}
	}
	return Info{Size: r.Int.Size() * uint32(r.Count), Align: r.Int.Align()}
}
