package schema

import (
	"testing"

	"github.com/pcardune/godb/codec"
)

func TestStringType(t *testing.T) {
	if !String.IsValid("hi") || String.IsValid(5) {
		t.Fatalf("String.IsValid wrong for string/int")
	}
	if !String.IsEqual("a", "a") || String.IsEqual("a", "b") {
		t.Fatalf("String.IsEqual wrong")
	}
	if String.Compare("a", "b") >= 0 || String.Compare("b", "a") <= 0 {
		t.Fatalf("String.Compare not ordered correctly")
	}
}

func TestU32Type(t *testing.T) {
	if !U32.IsValid(uint32(1)) || U32.IsValid(int32(1)) {
		t.Fatalf("U32.IsValid wrong")
	}
	if U32.Compare(uint32(1), uint32(2)) >= 0 {
		t.Fatalf("U32.Compare not ordered")
	}
}

func TestPositive(t *testing.T) {
	p := Positive(I32)
	if p.IsValid(int32(-1)) {
		t.Fatalf("Positive(I32).IsValid(-1) = true, want false")
	}
	if !p.IsValid(int32(1)) {
		t.Fatalf("Positive(I32).IsValid(1) = false, want true")
	}
	if p.IsValid("not an int32") {
		t.Fatalf("Positive(I32).IsValid(non-numeric) = true, want false")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	types := []Type{String, Bool, U32, I32, U64, I64, F64, Bytes}
	values := []any{"hello", true, uint32(7), int32(-7), uint64(8), int64(-8), float64(1.5), []byte("abc")}
	for i, ty := range types {
		c := ty.Codec()
		buf := make([]byte, c.SizeOf(values[i]))
		if err := c.WriteAt(values[i], codec.NewView(buf), 0); err != nil {
			t.Fatalf("%s: WriteAt: %v", ty.Name(), err)
		}
		got, err := c.ReadAt(codec.NewView(buf), 0)
		if err != nil {
			t.Fatalf("%s: ReadAt: %v", ty.Name(), err)
		}
		if !ty.IsEqual(got, values[i]) {
			t.Fatalf("%s: round trip = %v, want %v", ty.Name(), got, values[i])
		}
	}
}
