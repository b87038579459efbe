package codec

import (
	"testing"
	"time"
)

func TestFixedWidthRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	v := NewView(buf)

	if err := U32.WriteAt(42, v, 0); err != nil {
		t.Fatal(err)
	}
	got, err := U32.ReadAt(v, 0)
	if err != nil || got != 42 {
		t.Fatalf("got %v, %v", got, err)
	}

	if err := I64.WriteAt(-7, v, 4); err != nil {
		t.Fatal(err)
	}
	gi, err := I64.ReadAt(v, 4)
	if err != nil || gi != -7 {
		t.Fatalf("got %v, %v", gi, err)
	}

	if err := F64.WriteAt(3.25, v, 12); err != nil {
		t.Fatal(err)
	}
	gf, err := F64.ReadAt(v, 12)
	if err != nil || gf != 3.25 {
		t.Fatalf("got %v, %v", gf, err)
	}
}

func TestVariableStringRoundTrip(t *testing.T) {
	buf := make([]byte, 128)
	v := NewView(buf)
	s := "hello, world"
	if err := String.WriteAt(s, v, 0); err != nil {
		t.Fatal(err)
	}
	if String.SizeOf(s) != 4+len(s) {
		t.Fatalf("size mismatch")
	}
	got, err := String.ReadAt(v, 0)
	if err != nil || got != s {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestVariableEmptyNoInnerCall(t *testing.T) {
	buf := make([]byte, 16)
	v := NewView(buf)
	if err := v.SetU32BE(0, 0); err != nil {
		t.Fatal(err)
	}
	got, err := String.ReadAt(v, 0)
	if err != nil || got != "" {
		t.Fatalf("expected empty string, got %q, %v", got, err)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	v := NewView(buf)
	arr := Array[uint32]{Elem: U32}
	vals := []uint32{1, 2, 3, 4}
	if err := arr.WriteAt(vals, v, 0); err != nil {
		t.Fatal(err)
	}
	sub, err := v.Slice(0, arr.SizeOf(vals))
	if err != nil {
		t.Fatal(err)
	}
	got, err := arr.ReadAt(sub, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vals) {
		t.Fatalf("len mismatch: %v", got)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Fatalf("mismatch at %d: %v != %v", i, got[i], vals[i])
		}
	}
}

func TestNullableRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	v := NewView(buf)
	n := Nullable[uint32]{Inner: U32}

	if err := n.WriteAt(nil, v, 0); err != nil {
		t.Fatal(err)
	}
	got, err := n.ReadAt(v, 0)
	if err != nil || got != nil {
		t.Fatalf("expected nil, got %v, %v", got, err)
	}

	val := uint32(9)
	if err := n.WriteAt(&val, v, 8); err != nil {
		t.Fatal(err)
	}
	got2, err := n.ReadAt(v, 8)
	if err != nil || got2 == nil || *got2 != 9 {
		t.Fatalf("got %v, %v", got2, err)
	}
}

func TestDateTimestampRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	v := NewView(buf)
	d := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)
	if err := Date.WriteAt(d, v, 0); err != nil {
		t.Fatal(err)
	}
	got, err := Date.ReadAt(v, 0)
	if err != nil || !got.Equal(d) {
		t.Fatalf("got %v, %v", got, err)
	}

	ts := time.Unix(1700000000, 0).UTC()
	if err := Timestamp.WriteAt(ts, v, 8); err != nil {
		t.Fatal(err)
	}
	got2, err := Timestamp.ReadAt(v, 8)
	if err != nil || !got2.Equal(ts) {
		t.Fatalf("got %v, %v", got2, err)
	}
}

func TestRecordFixedWidth(t *testing.T) {
	rec := Record{Fields: []Field{
		{Name: "a", Codec: Erase(U32)},
		{Name: "b", Codec: Erase(Bool)},
	}}
	w, ok := rec.Width()
	if !ok || w != 5 {
		t.Fatalf("expected fixed width 5, got %d, %v", w, ok)
	}

	buf := make([]byte, 16)
	v := NewView(buf)
	vals := []any{uint32(7), true}
	if err := rec.WriteAt(vals, v, 0); err != nil {
		t.Fatal(err)
	}
	got, err := rec.ReadAt(v, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].(uint32) != 7 || got[1].(bool) != true {
		t.Fatalf("got %v", got)
	}
}

func TestRecordVariableWidth(t *testing.T) {
	rec := Record{Fields: []Field{
		{Name: "name", Codec: Erase(String)},
		{Name: "age", Codec: Erase(U32)},
	}}
	if _, ok := rec.Width(); ok {
		t.Fatalf("expected variable width record")
	}
	vals := []any{"Alice", uint32(30)}
	buf := make([]byte, 64)
	v := NewView(buf)
	if err := rec.WriteAt(vals, v, 0); err != nil {
		t.Fatal(err)
	}
	got, err := rec.ReadAt(v, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].(string) != "Alice" || got[1].(uint32) != 30 {
		t.Fatalf("got %v", got)
	}
}

func TestReadPastEnd(t *testing.T) {
	buf := make([]byte, 4)
	v := NewView(buf)
	if _, err := U64.ReadAt(v, 0); err == nil {
		t.Fatalf("expected read-past-end error")
	}
}

func TestOutOfSpace(t *testing.T) {
	buf := make([]byte, 2)
	v := NewView(buf)
	if err := U32.WriteAt(1, v, 0); err == nil {
		t.Fatalf("expected out-of-space error")
	}
}
