package heapfile

import (
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/pagestore"
)

// HeapPageFile is a directory-of-pages allocator: a linked list of
// header pages whose entries point at slotted data pages and record
// their remaining free space. Allocation only
// scans the entries of the current head header page — once it fills,
// a new header page is pushed in front and becomes the scan target,
// matching the source's first-fit-in-head-page behavior rather than a
// full-list scan.
type HeapPageFile struct {
	bp      *pagestore.BufferPool
	head    pagestore.PageID
	dropped bool
}

// Create allocates a fresh, empty heap page file (a single header page
// with no entries) and returns a handle to it.
func Create(bp *pagestore.BufferPool) (*HeapPageFile, error) {
	pid, err := bp.AllocatePage()
	if err != nil {
		return nil, err
	}
	if _, err := pagestore.WriteToPage(bp, pid, func(v *codec.View) (struct{}, error) {
		if err := v.Fill(0, 0, 0); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, wrapHeaderPage(v).initEmpty(0)
	}); err != nil {
		return nil, err
	}
	return &HeapPageFile{bp: bp, head: pid}, nil
}

// Open wraps an existing heap page file given the PageId of its head
// header page (persisted elsewhere, e.g. in a catalog entry).
func Open(bp *pagestore.BufferPool, head pagestore.PageID) *HeapPageFile {
	return &HeapPageFile{bp: bp, head: head}
}

// HeadPageID returns the PageId of the current head header page, for
// callers that need to persist it (e.g. a catalog entry or an index's
// own header record).
func (h *HeapPageFile) HeadPageID() pagestore.PageID { return h.head }

// Slot identifies a record's position: which data page, and which slot
// within that page's slotted directory.
type Slot struct {
	PageID pagestore.PageID
	Index  int
}

// AllocateSpace reserves nBytes of record storage and returns where it
// landed.
func (h *HeapPageFile) AllocateSpace(nBytes int) (Slot, error) {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return Slot{}, err
	}

	headView, err := h.bp.ReadView(h.head)
	if err != nil {
		return Slot{}, err
	}
	hp := wrapHeaderPage(headView)
	n, err := hp.count()
	if err != nil {
		return Slot{}, err
	}
	for i := 0; i < n; i++ {
		e, err := hp.entry(i)
		if err != nil {
			return Slot{}, err
		}
		if e.FreeSpace < uint32(nBytes) {
			continue
		}
		idx, _, free, err := h.allocateOnDataPage(e.PageID, nBytes)
		if err != nil {
			return Slot{}, err
		}
		e.FreeSpace = uint32(free)
		if err := hp.setEntry(i, e); err != nil {
			return Slot{}, err
		}
		h.bp.MarkDirty(h.head)
		return Slot{PageID: e.PageID, Index: idx}, nil
	}

	pid, err := h.bp.AllocatePage()
	if err != nil {
		return Slot{}, err
	}
	if _, err := pagestore.WriteToPage(h.bp, pid, func(v *codec.View) (struct{}, error) {
		if err := v.Fill(0, 0, 0); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, pagestore.NewSlottedPage(v).InitEmpty()
	}); err != nil {
		return Slot{}, err
	}

	idx, _, free, err := h.allocateOnDataPage(pid, nBytes)
	if err != nil {
		return Slot{}, err
	}
	entry := headerEntry{PageID: pid, FreeSpace: uint32(free)}

	ok, err := hp.appendEntry(entry)
	if err != nil {
		return Slot{}, err
	}
	if ok {
		h.bp.MarkDirty(h.head)
		return Slot{PageID: pid, Index: idx}, nil
	}

	newHead, err := h.bp.AllocatePage()
	if err != nil {
		return Slot{}, err
	}
	oldHead := h.head
	if _, err := pagestore.WriteToPage(h.bp, newHead, func(v *codec.View) (struct{}, error) {
		if err := v.Fill(0, 0, 0); err != nil {
			return struct{}{}, err
		}
		hp2 := wrapHeaderPage(v)
		if err := hp2.initEmpty(oldHead); err != nil {
			return struct{}{}, err
		}
		if _, err := hp2.appendEntry(entry); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}); err != nil {
		return Slot{}, err
	}
	h.head = newHead
	return Slot{PageID: pid, Index: idx}, nil
}

func (h *HeapPageFile) allocateOnDataPage(pid pagestore.PageID, nBytes int) (idx int, slot pagestore.Slot, free int, err error) {
	type result struct {
		idx  int
		slot pagestore.Slot
		free int
	}
	r, err := pagestore.WriteToPage(h.bp, pid, func(v *codec.View) (result, error) {
		sp := pagestore.NewSlottedPage(v)
		idx, slot, err := sp.AllocateSlot(nBytes)
		if err != nil {
			return result{}, err
		}
		free, err := sp.FreeSpace()
		return result{idx: idx, slot: slot, free: free}, err
	})
	return r.idx, r.slot, r.free, err
}

// ReadSlot returns the record bytes at s, or ok=false if that slot has
// been freed.
func (h *HeapPageFile) ReadSlot(s Slot) (data []byte, ok bool, err error) {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return nil, false, err
	}
	v, err := h.bp.ReadView(s.PageID)
	if err != nil {
		return nil, false, err
	}
	sp := pagestore.NewSlottedPage(v)
	entry, err := sp.GetSlotEntry(s.Index)
	if err != nil {
		return nil, false, err
	}
	if entry.Length == 0 {
		return nil, false, nil
	}
	data, err = v.GetBytes(int(entry.Offset), int(entry.Length))
	return data, true, err
}

// WriteSlotInPlace overwrites the bytes already occupying s without
// reallocating. The caller must ensure len(data) equals the slot's
// current length.
func (h *HeapPageFile) WriteSlotInPlace(s Slot, data []byte) error {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return err
	}
	_, err := pagestore.WriteToPage(h.bp, s.PageID, func(v *codec.View) (struct{}, error) {
		sp := pagestore.NewSlottedPage(v)
		entry, err := sp.GetSlotEntry(s.Index)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, v.SetBytes(int(entry.Offset), data)
	})
	return err
}

// FreeSlot frees s within its data page's slot directory. Header-page
// free-space bookkeeping is not updated by this call — it is only
// refreshed on the next allocation that lands on this page, matching
// the source's accepted staleness between frees and header entries.
func (h *HeapPageFile) FreeSlot(s Slot) error {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return err
	}
	_, err := pagestore.WriteToPage(h.bp, s.PageID, func(v *codec.View) (struct{}, error) {
		return struct{}{}, pagestore.NewSlottedPage(v).FreeSlot(s.Index)
	})
	return err
}

// HeaderPageRefs walks the header-page list head to tail.
func (h *HeapPageFile) HeaderPageRefs() ([]pagestore.PageID, error) {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return nil, err
	}
	var refs []pagestore.PageID
	cur := h.head
	for {
		refs = append(refs, cur)
		v, err := h.bp.ReadView(cur)
		if err != nil {
			return nil, err
		}
		next, err := wrapHeaderPage(v).next()
		if err != nil {
			return nil, err
		}
		if next == 0 {
			return refs, nil
		}
		cur = next
	}
}

// SlotsOnPage returns every slot directory entry on data page pid, in
// index order, including freed ones (Length 0) — the slot's index in
// this slice is its Slot.Index.
func (h *HeapPageFile) SlotsOnPage(pid pagestore.PageID) ([]pagestore.Slot, error) {
	if err := checkDropped(h.dropped, "heap page file"); err != nil {
		return nil, err
	}
	v, err := h.bp.ReadView(pid)
	if err != nil {
		return nil, err
	}
	return pagestore.NewSlottedPage(v).IterSlots()
}

// Commit delegates to the underlying buffer pool.
func (h *HeapPageFile) Commit() error {
	return h.bp.Commit()
}

// DataPageIDs returns the PageId of every data page referenced by every
// header page, for callers (table iteration, §4.10) that need to walk
// every live slot in the heap page file.
func (h *HeapPageFile) DataPageIDs() ([]pagestore.PageID, error) {
	refs, err := h.HeaderPageRefs()
	if err != nil {
		return nil, err
	}
	var pages []pagestore.PageID
	for _, headerID := range refs {
		v, err := h.bp.ReadView(headerID)
		if err != nil {
			return nil, err
		}
		hp := wrapHeaderPage(v)
		n, err := hp.count()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			e, err := hp.entry(i)
			if err != nil {
				return nil, err
			}
			pages = append(pages, e.PageID)
		}
	}
	return pages, nil
}

// Drop frees every data page referenced by every header page, then the
// header pages themselves. Returns the full set of pages freed, for
// callers (like Table.drop) that need to report exactly what was
// reclaimed.
func (h *HeapPageFile) Drop() ([]pagestore.PageID, error) {
	refs, err := h.HeaderPageRefs()
	if err != nil {
		return nil, err
	}

	var freed []pagestore.PageID
	for _, headerID := range refs {
		v, err := h.bp.ReadView(headerID)
		if err != nil {
			return nil, err
		}
		hp := wrapHeaderPage(v)
		n, err := hp.count()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			e, err := hp.entry(i)
			if err != nil {
				return nil, err
			}
			freed = append(freed, e.PageID)
		}
	}
	if err := h.bp.FreePages(freed); err != nil {
		return nil, err
	}
	if err := h.bp.FreePages(refs); err != nil {
		return nil, err
	}

	h.dropped = true
	all := append(freed, refs...)
	return all, nil
}
