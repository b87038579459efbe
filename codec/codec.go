package codec

// Codec is the contract every value codec satisfies: compute an encoded
// size, read a value at an offset in a view, write a value at an offset
// in a view. Fixed-width codecs return a constant from SizeOf; variable-
// width codecs return the length of this particular value's encoding.
type Codec[T any] interface {
	SizeOf(v T) int
	ReadAt(v *View, offset int) (T, error)
	WriteAt(val T, v *View, offset int) error
}

// FixedWidth is implemented by codecs whose encoded size never depends on
// the value — the record codec uses this to decide whether a whole record
// is itself fixed-width.
type FixedWidth interface {
	Width() int
}

// ── Fixed-width primitives ──────────────────────────────────────────────

type boolCodec struct{}

// Bool is the 1-byte boolean codec.
var Bool Codec[bool] = boolCodec{}

func (boolCodec) Width() int { return 1 }
func (boolCodec) SizeOf(bool) int { return 1 }
func (boolCodec) ReadAt(v *View, off int) (bool, error) {
	b, err := v.GetU8(off)
	return b != 0, err
}
func (boolCodec) WriteAt(val bool, v *View, off int) error {
	b := uint8(0)
	if val {
		b = 1
	}
	return v.SetU8(off, b)
}

type u8Codec struct{}

// U8 is the 1-byte unsigned-integer codec.
var U8 Codec[uint8] = u8Codec{}

func (u8Codec) Width() int               { return 1 }
func (u8Codec) SizeOf(uint8) int         { return 1 }
func (u8Codec) ReadAt(v *View, off int) (uint8, error) { return v.GetU8(off) }
func (u8Codec) WriteAt(val uint8, v *View, off int) error { return v.SetU8(off, val) }

type u16Codec struct{}

// U16 is the 2-byte big-endian unsigned-integer codec.
var U16 Codec[uint16] = u16Codec{}

func (u16Codec) Width() int                            { return 2 }
func (u16Codec) SizeOf(uint16) int                     { return 2 }
func (u16Codec) ReadAt(v *View, off int) (uint16, error) { return v.GetU16BE(off) }
func (u16Codec) WriteAt(val uint16, v *View, off int) error { return v.SetU16BE(off, val) }

type i16Codec struct{}

// I16 is the 2-byte big-endian signed-integer codec.
var I16 Codec[int16] = i16Codec{}

func (i16Codec) Width() int                           { return 2 }
func (i16Codec) SizeOf(int16) int                     { return 2 }
func (i16Codec) ReadAt(v *View, off int) (int16, error) { return v.GetI16BE(off) }
func (i16Codec) WriteAt(val int16, v *View, off int) error { return v.SetI16BE(off, val) }

type u32Codec struct{}

// U32 is the 4-byte big-endian unsigned-integer codec.
var U32 Codec[uint32] = u32Codec{}

func (u32Codec) Width() int                             { return 4 }
func (u32Codec) SizeOf(uint32) int                      { return 4 }
func (u32Codec) ReadAt(v *View, off int) (uint32, error) { return v.GetU32BE(off) }
func (u32Codec) WriteAt(val uint32, v *View, off int) error { return v.SetU32BE(off, val) }

type i32Codec struct{}

// I32 is the 4-byte big-endian signed-integer codec.
var I32 Codec[int32] = i32Codec{}

func (i32Codec) Width() int                           { return 4 }
func (i32Codec) SizeOf(int32) int                     { return 4 }
func (i32Codec) ReadAt(v *View, off int) (int32, error) { return v.GetI32BE(off) }
func (i32Codec) WriteAt(val int32, v *View, off int) error { return v.SetI32BE(off, val) }

type u64Codec struct{}

// U64 is the 8-byte big-endian unsigned-integer codec.
var U64 Codec[uint64] = u64Codec{}

func (u64Codec) Width() int                             { return 8 }
func (u64Codec) SizeOf(uint64) int                      { return 8 }
func (u64Codec) ReadAt(v *View, off int) (uint64, error) { return v.GetU64BE(off) }
func (u64Codec) WriteAt(val uint64, v *View, off int) error { return v.SetU64BE(off, val) }

type i64Codec struct{}

// I64 is the 8-byte big-endian signed-integer codec.
var I64 Codec[int64] = i64Codec{}

func (i64Codec) Width() int                           { return 8 }
func (i64Codec) SizeOf(int64) int                     { return 8 }
func (i64Codec) ReadAt(v *View, off int) (int64, error) { return v.GetI64BE(off) }
func (i64Codec) WriteAt(val int64, v *View, off int) error { return v.SetI64BE(off, val) }

type f64Codec struct{}

// F64 is the 8-byte big-endian IEEE-754 float64 codec.
var F64 Codec[float64] = f64Codec{}

func (f64Codec) Width() int                             { return 8 }
func (f64Codec) SizeOf(float64) int                     { return 8 }
func (f64Codec) ReadAt(v *View, off int) (float64, error) { return v.GetF64BE(off) }
func (f64Codec) WriteAt(val float64, v *View, off int) error { return v.SetF64BE(off, val) }
