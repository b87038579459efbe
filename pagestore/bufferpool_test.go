package pagestore

import (
	"testing"

	"github.com/pcardune/godb/codec"
)

func newTestPool(t *testing.T) *BufferPool {
	t.Helper()
	bp, err := Open(NewMemoryBackend(), 12, 64)
	if err != nil {
		t.Fatal(err)
	}
	return bp
}

func TestAllocateExtendsFile(t *testing.T) {
	bp := newTestPool(t)
	p1, err := bp.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	p2, err := bp.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	if p2 != p1+PageID(bp.PageSize()) {
		t.Fatalf("expected sequential pages, got %d then %d", p1, p2)
	}
}

func TestFreelistLIFO(t *testing.T) {
	// S5: allocate p1,p2,p3; free p2 then p3; allocate returns p3, p2,
	// then a fresh page.
	bp := newTestPool(t)
	p1, _ := bp.AllocatePage()
	p2, _ := bp.AllocatePage()
	p3, _ := bp.AllocatePage()
	_ = p1

	if err := bp.FreePage(p2); err != nil {
		t.Fatal(err)
	}
	if err := bp.FreePage(p3); err != nil {
		t.Fatal(err)
	}

	got1, _ := bp.AllocatePage()
	if got1 != p3 {
		t.Fatalf("expected p3 (%d) first, got %d", p3, got1)
	}
	got2, _ := bp.AllocatePage()
	if got2 != p2 {
		t.Fatalf("expected p2 (%d) second, got %d", p2, got2)
	}
	got3, _ := bp.AllocatePage()
	if got3 <= p3 {
		t.Fatalf("expected a fresh page beyond %d, got %d", p3, got3)
	}
}

func TestWriteToPageMarksDirtyAndCommits(t *testing.T) {
	bp := newTestPool(t)
	pid, _ := bp.AllocatePage()

	_, err := WriteToPage(bp, pid, func(v *codec.View) (struct{}, error) {
		return struct{}{}, v.SetU32BE(8, 42)
	})
	_ = err

	if !bp.IsDirty() {
		t.Fatalf("expected pool to be dirty")
	}
	if err := bp.Commit(); err != nil {
		t.Fatal(err)
	}
	if bp.IsDirty() {
		t.Fatalf("expected clean pool after commit")
	}

	v, err := bp.ReadView(pid)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.GetU32BE(8)
	if err != nil || got != 42 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestReopenPreservesFreelistAndData(t *testing.T) {
	backend := NewMemoryBackend()
	bp, err := Open(backend, 12, 64)
	if err != nil {
		t.Fatal(err)
	}
	p1, _ := bp.AllocatePage()
	p2, _ := bp.AllocatePage()
	if err := bp.FreePage(p1); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteToPage(bp, p2, func(v *codec.View) (struct{}, error) {
		return struct{}{}, v.SetU32BE(8, 99)
	}); err != nil {
		t.Fatal(err)
	}
	if err := bp.Commit(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(backend, 12, 64)
	if err != nil {
		t.Fatal(err)
	}
	v, err := reopened.ReadView(p2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.GetU32BE(8)
	if err != nil || got != 99 {
		t.Fatalf("got %v, %v", got, err)
	}

	// p1 was freed before commit — a fresh allocation must reuse it.
	next, err := reopened.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	if next != p1 {
		t.Fatalf("expected reopened pool to reuse freed page %d, got %d", p1, next)
	}
}
