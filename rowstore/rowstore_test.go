package rowstore

import (
	"testing"

	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/pagestore"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	bp, err := pagestore.Open(pagestore.NewMemoryBackend(), 12, 256)
	if err != nil {
		t.Fatalf("pagestore.Open: %v", err)
	}
	hf, err := heapfile.Create(bp)
	if err != nil {
		t.Fatalf("heapfile.Create: %v", err)
	}
	fields := []codec.Field{
		{Name: "id", Codec: codec.Erase(codec.U32)},
		{Name: "name", Codec: codec.Erase(codec.String)},
	}
	return New(hf, fields)
}

func TestStorageInsertGet(t *testing.T) {
	s := newTestStorage(t)
	id, err := s.Insert(map[string]any{"id": uint32(1), "name": "alice"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	row, ok, err := s.Get(id)
	if err != nil || !ok {
		t.Fatalf("Get: %v %v %v", row, ok, err)
	}
	if row["id"] != uint32(1) || row["name"] != "alice" {
		t.Fatalf("Get() = %v", row)
	}
}

func TestStorageSetInPlace(t *testing.T) {
	s := newTestStorage(t)
	id, err := s.Insert(map[string]any{"id": uint32(1), "name": "alice"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Set(id, map[string]any{"id": uint32(1), "name": "alicia"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	row, ok, err := s.Get(id)
	if err != nil || !ok || row["name"] != "alicia" {
		t.Fatalf("Get after Set = %v %v %v", row, ok, err)
	}
}

func TestStorageSetGrowFails(t *testing.T) {
	s := newTestStorage(t)
	id, err := s.Insert(map[string]any{"id": uint32(1), "name": "a"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err = s.Set(id, map[string]any{"id": uint32(1), "name": "a much longer name than before"})
	if err == nil {
		t.Fatalf("Set with growth should fail")
	}
	if _, ok := err.(*errs.NoSpace); !ok {
		t.Fatalf("Set growth error = %v, want *errs.NoSpace", err)
	}
}

func TestStorageRemoveAndEach(t *testing.T) {
	s := newTestStorage(t)
	var ids []RowID
	for i := 0; i < 5; i++ {
		id, err := s.Insert(map[string]any{"id": uint32(i), "name": "row"})
		if err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		ids = append(ids, id)
	}
	if err := s.Remove(ids[2]); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	seen := 0
	err := s.Each(func(id RowID, row map[string]any) error {
		seen++
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if seen != 4 {
		t.Fatalf("Each visited %d rows, want 4", seen)
	}

	if _, ok, err := s.Get(ids[2]); err != nil || ok {
		t.Fatalf("Get(removed) = ok=%v err=%v, want ok=false", ok, err)
	}
}

func TestStorageCommit(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.Insert(map[string]any{"id": uint32(1), "name": "a"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}
