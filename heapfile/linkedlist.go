package heapfile

import (
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/pagestore"
)

const (
	llNextOffset = 0  // u64: next page in chain, 0 = end
	llLenOffset  = 8  // u32: payload bytes stored on this page
	llDataOffset = 12
)

func llCapacity(pageSize int) int { return pageSize - llDataOffset }

// LinkedPageList stores a blob too large for a single record by
// chaining pages via a next_page_id header.
type LinkedPageList struct {
	bp      *pagestore.BufferPool
	head    pagestore.PageID
	dropped bool
}

// CreateLinkedList allocates a fresh, empty linked page list.
func CreateLinkedList(bp *pagestore.BufferPool) (*LinkedPageList, error) {
	pid, err := bp.AllocatePage()
	if err != nil {
		return nil, err
	}
	if _, err := pagestore.WriteToPage(bp, pid, func(v *codec.View) (struct{}, error) {
		if err := v.Fill(0, 0, 0); err != nil {
			return struct{}{}, err
		}
		if err := v.SetU64BE(llNextOffset, 0); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, v.SetU32BE(llLenOffset, 0)
	}); err != nil {
		return nil, err
	}
	return &LinkedPageList{bp: bp, head: pid}, nil
}

// OpenLinkedList wraps an existing linked page list given its head page.
func OpenLinkedList(bp *pagestore.BufferPool, head pagestore.PageID) *LinkedPageList {
	return &LinkedPageList{bp: bp, head: head}
}

// HeadPageID returns the PageId where this blob's data begins.
func (l *LinkedPageList) HeadPageID() pagestore.PageID { return l.head }

// Read concatenates every page's payload, following next_page_id until
// it reaches 0.
func (l *LinkedPageList) Read() ([]byte, error) {
	if err := checkDropped(l.dropped, "linked page list"); err != nil {
		return nil, err
	}
	var out []byte
	cur := l.head
	for {
		v, err := l.bp.ReadView(cur)
		if err != nil {
			return nil, err
		}
		next, err := v.GetU64BE(llNextOffset)
		if err != nil {
			return nil, err
		}
		n, err := v.GetU32BE(llLenOffset)
		if err != nil {
			return nil, err
		}
		chunk, err := v.GetBytes(llDataOffset, int(n))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if next == 0 {
			return out, nil
		}
		cur = pagestore.PageID(next)
	}
}

// Write splits data across the chain starting at the head page,
// reusing already-chained pages before allocating new ones, and frees
// any trailing pages left over from a previously longer write.
func (l *LinkedPageList) Write(data []byte) error {
	if err := checkDropped(l.dropped, "linked page list"); err != nil {
		return err
	}

	pageCap := llCapacity(l.bp.PageSize())
	cur := l.head
	remaining := data

	for {
		oldView, err := l.bp.ReadView(cur)
		if err != nil {
			return err
		}
		oldNext, err := oldView.GetU64BE(llNextOffset)
		if err != nil {
			return err
		}

		chunkLen := len(remaining)
		if chunkLen > pageCap {
			chunkLen = pageCap
		}
		chunk := remaining[:chunkLen]
		remaining = remaining[chunkLen:]
		needNext := len(remaining) > 0

		var nextID pagestore.PageID
		if needNext {
			if oldNext != 0 {
				nextID = pagestore.PageID(oldNext)
			} else {
				nextID, err = l.bp.AllocatePage()
				if err != nil {
					return err
				}
			}
		}

		if _, err := pagestore.WriteToPage(l.bp, cur, func(v *codec.View) (struct{}, error) {
			if err := v.SetU64BE(llNextOffset, uint64(nextID)); err != nil {
				return struct{}{}, err
			}
			if err := v.SetU32BE(llLenOffset, uint32(chunkLen)); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, v.SetBytes(llDataOffset, chunk)
		}); err != nil {
			return err
		}

		if !needNext {
			if oldNext != 0 {
				return l.freeChainFrom(pagestore.PageID(oldNext))
			}
			return nil
		}
		cur = nextID
	}
}

func (l *LinkedPageList) freeChainFrom(start pagestore.PageID) error {
	cur := start
	for {
		v, err := l.bp.ReadView(cur)
		if err != nil {
			return err
		}
		next, err := v.GetU64BE(llNextOffset)
		if err != nil {
			return err
		}
		if err := l.bp.FreePage(cur); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cur = pagestore.PageID(next)
	}
}

// Drop frees every page in the chain.
func (l *LinkedPageList) Drop() error {
	if err := checkDropped(l.dropped, "linked page list"); err != nil {
		return err
	}
	if err := l.freeChainFrom(l.head); err != nil {
		return err
	}
	l.dropped = true
	return nil
}
