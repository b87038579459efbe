package codec

// Variable wraps an inner codec in a u32 length-prefixed envelope. A
// length of 0 materializes the inner zero value without invoking the
// inner reader at all — this lets variable-width codecs represent an
// explicit "empty" without requiring the inner type to support one.
type Variable[T any] struct {
	Inner Codec[T]
	Zero  T // returned, undecoded, when the length prefix is 0
}

func (c Variable[T]) SizeOf(val T) int {
	return 4 + c.Inner.SizeOf(val)
}

func (c Variable[T]) ReadAt(v *View, off int) (T, error) {
	n, err := v.GetU32BE(off)
	if err != nil {
		return c.Zero, err
	}
	if n == 0 {
		return c.Zero, nil
	}
	inner, err := v.Slice(off+4, int(n))
	if err != nil {
		return c.Zero, err
	}
	return c.Inner.ReadAt(inner, 0)
}

func (c Variable[T]) WriteAt(val T, v *View, off int) error {
	n := c.Inner.SizeOf(val)
	if err := v.SetU32BE(off, uint32(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	inner, err := v.Slice(off+4, n)
	if err != nil {
		return err
	}
	return c.Inner.WriteAt(val, inner, 0)
}

// ── Strings and raw bytes ───────────────────────────────────────────────

type rawStringCodec struct{}

func (rawStringCodec) SizeOf(s string) int { return len(s) }
func (rawStringCodec) ReadAt(v *View, off int) (string, error) {
	return v.DecodeUTF8(off, v.Len()-off)
}
func (rawStringCodec) WriteAt(s string, v *View, off int) error {
	return v.SetBytes(off, []byte(s))
}

// String is the UTF-8 string codec: a u32 length prefix followed by the
// raw UTF-8 bytes.
var String Codec[string] = Variable[string]{Inner: rawStringCodec{}, Zero: ""}

type rawBytesCodec struct{}

func (rawBytesCodec) SizeOf(b []byte) int { return len(b) }
func (rawBytesCodec) ReadAt(v *View, off int) ([]byte, error) {
	return v.GetBytes(off, v.Len()-off)
}
func (rawBytesCodec) WriteAt(b []byte, v *View, off int) error {
	return v.SetBytes(off, b)
}

// Bytes is the raw-bytes codec: a u32 length prefix followed by the raw
// bytes (JSON form is base64 — see schema package).
var Bytes Codec[[]byte] = Variable[[]byte]{Inner: rawBytesCodec{}, Zero: nil}

// ── Arrays ───────────────────────────────────────────────────────────────

// Array encodes a slice as the concatenation of element encodings; there
// is no count prefix — a consumer (typically itself inside a Variable
// envelope, which bounds the total length) reads until the slice is
// exhausted.
type Array[T any] struct {
	Elem Codec[T]
}

func (c Array[T]) SizeOf(vals []T) int {
	total := 0
	for _, v := range vals {
		total += c.Elem.SizeOf(v)
	}
	return total
}

func (c Array[T]) ReadAt(v *View, off int) ([]T, error) {
	var out []T
	pos := off
	for pos < v.Len() {
		val, err := c.Elem.ReadAt(v, pos)
		if err != nil {
			return nil, err
		}
		pos += c.Elem.SizeOf(val)
		out = append(out, val)
	}
	return out, nil
}

func (c Array[T]) WriteAt(vals []T, v *View, off int) error {
	pos := off
	for _, val := range vals {
		if err := c.Elem.WriteAt(val, v, pos); err != nil {
			return err
		}
		pos += c.Elem.SizeOf(val)
	}
	return nil
}

// ── Nullable ─────────────────────────────────────────────────────────────

// Nullable wraps an inner codec with a 1-byte discriminator: 0 = null
// (nothing further encoded), 1 = present (followed by the inner encoding).
type Nullable[T any] struct {
	Inner Codec[T]
}

func (c Nullable[T]) SizeOf(val *T) int {
	if val == nil {
		return 1
	}
	return 1 + c.Inner.SizeOf(*val)
}

func (c Nullable[T]) ReadAt(v *View, off int) (*T, error) {
	tag, err := v.GetU8(off)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	val, err := c.Inner.ReadAt(v, off+1)
	if err != nil {
		return nil, err
	}
	return &val, nil
}

func (c Nullable[T]) WriteAt(val *T, v *View, off int) error {
	if val == nil {
		return v.SetU8(off, 0)
	}
	if err := v.SetU8(off, 1); err != nil {
		return err
	}
	return c.Inner.WriteAt(*val, v, off+1)
}
