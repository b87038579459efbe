package heapfile

import "github.com/pcardune/godb/pagestore"

// SlotLength returns the current recorded length of slot s (0 if freed),
// for callers that must verify an in-place rewrite fits before calling
// WriteSlotInPlace (e.g. the B+-tree node store's commit).
func (h *HeapPageFile) SlotLength(s Slot) (int, error) {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return 0, err
	}
	v, err := h.bp.ReadView(s.PageID)
	if err != nil {
		return 0, err
	}
	entry, err := pagestore.NewSlottedPage(v).GetSlotEntry(s.Index)
	if err != nil {
		return 0, err
	}
	return int(entry.Length), nil
}
