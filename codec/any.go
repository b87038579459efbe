package codec

// AnyCodec is a type-erased Codec, used wherever a schema needs to hold
// a heterogeneous list of per-column codecs (records, tuples) decided at
// runtime from column metadata rather than at compile time.
type AnyCodec interface {
	SizeOf(v any) int
	ReadAt(v *View, offset int) (any, error)
	WriteAt(val any, v *View, offset int) error
	// Width reports a fixed encoded size and true, or (0, false) if the
	// codec is variable-width.
	Width() (int, bool)
}

type erased[T any] struct {
	c Codec[T]
}

// Erase adapts a typed Codec[T] into an AnyCodec.
func Erase[T any](c Codec[T]) AnyCodec {
	return erased[T]{c: c}
}

func (e erased[T]) SizeOf(v any) int {
	return e.c.SizeOf(v.(T))
}

func (e erased[T]) ReadAt(v *View, off int) (any, error) {
	return e.c.ReadAt(v, off)
}

func (e erased[T]) WriteAt(val any, v *View, off int) error {
	return e.c.WriteAt(val.(T), v, off)
}

func (e erased[T]) Width() (int, bool) {
	if fw, ok := e.c.(FixedWidth); ok {
		return fw.Width(), true
	}
	return 0, false
}

// Encode returns the exact byte encoding of v under c, sized by c.SizeOf.
func Encode(c AnyCodec, v any) ([]byte, error) {
	buf := make([]byte, c.SizeOf(v))
	if err := c.WriteAt(v, NewView(buf), 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode decodes b as a single value of codec c, starting at offset 0.
func Decode(c AnyCodec, b []byte) (any, error) {
	return c.ReadAt(NewView(b), 0)
}

// Field is one named column in a Record codec.
type Field struct {
	Name  string
	Codec AnyCodec
}

// Record serializes named fields in declared order with no separators,
// no tags, and no padding; if every field is fixed-width the whole
// record is fixed-width (SizeOf is then constant).
type Record struct {
	Fields []Field
}

// Width returns the record's fixed width and true only if every field is
// itself fixed-width.
func (r Record) Width() (int, bool) {
	total := 0
	for _, f := range r.Fields {
		w, ok := f.Codec.Width()
		if !ok {
			return 0, false
		}
		total += w
	}
	return total, true
}

// SizeOf returns the encoded size of vals (a value per field, in order).
func (r Record) SizeOf(vals []any) int {
	total := 0
	for i, f := range r.Fields {
		total += f.Codec.SizeOf(vals[i])
	}
	return total
}

// ReadAt decodes len(r.Fields) values starting at offset.
func (r Record) ReadAt(v *View, off int) ([]any, error) {
	out := make([]any, len(r.Fields))
	pos := off
	for i, f := range r.Fields {
		val, err := f.Codec.ReadAt(v, pos)
		if err != nil {
			return nil, err
		}
		out[i] = val
		pos += f.Codec.SizeOf(val)
	}
	return out, nil
}

// WriteAt encodes vals (one per field, in order) starting at offset.
func (r Record) WriteAt(vals []any, v *View, off int) error {
	pos := off
	for i, f := range r.Fields {
		if err := f.Codec.WriteAt(vals[i], v, pos); err != nil {
			return err
		}
		pos += f.Codec.SizeOf(vals[i])
	}
	return nil
}
