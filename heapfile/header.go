// Package heapfile implements a directory-of-pages allocator over a
// pagestore.BufferPool: a linked list of header pages whose entries
// point at data pages and track their remaining free space, plus a
// multi-page linked list for blobs too large for a single record.
package heapfile

import (
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/pagestore"
)

const (
	headerNextOffset  = 0  // u64: next header page, 0 = end of list
	headerCountOffset = 8  // u32: number of entries
	headerEntryOffset = 12 // first (page_id:u64, free_space:u32) entry

	entryWidth = 12
)

func entryCapacity(pageSize int) int {
	return (pageSize - headerEntryOffset) / entryWidth
}

// headerEntry is one (data_page_id, free_space) pair in a header page.
type headerEntry struct {
	PageID    pagestore.PageID
	FreeSpace uint32
}

type headerPage struct {
	v *codec.View
}

func wrapHeaderPage(v *codec.View) *headerPage { return &headerPage{v: v} }

func (h *headerPage) initEmpty(next pagestore.PageID) error {
	if err := h.setNext(next); err != nil {
		return err
	}
	return h.setCount(0)
}

func (h *headerPage) next() (pagestore.PageID, error) {
	u, err := h.v.GetU64BE(headerNextOffset)
	return pagestore.PageID(u), err
}

func (h *headerPage) setNext(p pagestore.PageID) error {
	return h.v.SetU64BE(headerNextOffset, uint64(p))
}

func (h *headerPage) count() (int, error) {
	n, err := h.v.GetU32BE(headerCountOffset)
	return int(n), err
}

func (h *headerPage) setCount(n int) error {
	return h.v.SetU32BE(headerCountOffset, uint32(n))
}

func (h *headerPage) entry(i int) (headerEntry, error) {
	off := headerEntryOffset + i*entryWidth
	pid, err := h.v.GetU64BE(off)
	if err != nil {
		return headerEntry{}, err
	}
	fs, err := h.v.GetU32BE(off + 8)
	if err != nil {
		return headerEntry{}, err
	}
	return headerEntry{PageID: pagestore.PageID(pid), FreeSpace: fs}, nil
}

func (h *headerPage) setEntry(i int, e headerEntry) error {
	off := headerEntryOffset + i*entryWidth
	if err := h.v.SetU64BE(off, uint64(e.PageID)); err != nil {
		return err
	}
	return h.v.SetU32BE(off+8, e.FreeSpace)
}

// appendEntry adds e to the end of the entry list. It reports ok=false
// (no error) when the page has no room left, so the caller can push a
// new header page instead.
func (h *headerPage) appendEntry(e headerEntry) (ok bool, err error) {
	n, err := h.count()
	if err != nil {
		return false, err
	}
	if n >= entryCapacity(h.v.Len()) {
		return false, nil
	}
	if err := h.setEntry(n, e); err != nil {
		return false, err
	}
	if err := h.setCount(n + 1); err != nil {
		return false, err
	}
	return true, nil
}

func checkDropped(dropped bool, what string) error {
	if dropped {
		return &errs.UseAfterDrop{What: what}
	}
	return nil
}
