package pagestore

import (
	"github.com/pcardune/godb/codec"
)

// slotEntryWidth is the byte width of one (offset:u32, length:u32) slot
// directory entry.
const slotEntryWidth = 8

// footerFieldWidth is the width of each of the two footer scalars
// (slotCount, freeSpaceOffset) at the tail of a slotted page.
const footerFieldWidth = 4

// Slot describes one entry in a slotted page's footer. Length 0 marks a
// freed slot.
type Slot struct {
	Offset uint32
	Length uint32
}

func (s Slot) free() bool { return s.Length == 0 }

// SlottedPage lays out variable-length records within a single page
// buffer: record bytes grow from the head of the page, the slot
// directory grows from the tail, with freeSpaceOffset and
// slotCount as the last 8 bytes of the page:
//
//	[ record bytes → ....... ← slot[n-1] | ... | slot[0] | freeSpaceOffset | slotCount ]
//
// This is a thin view over a buffer owned elsewhere (typically a
// pagestore page fetched from a BufferPool); SlottedPage does not copy
// or cache anything itself.
type SlottedPage struct {
	v *codec.View
}

// NewSlottedPage wraps an existing page view. Callers creating a fresh
// page must zero the buffer first (a zeroed footer reads as
// slotCount=0, freeSpaceOffset=0, which InitEmpty also produces).
func NewSlottedPage(v *codec.View) *SlottedPage { return &SlottedPage{v: v} }

// InitEmpty resets the page to the empty state: zero slots, free space
// starting at offset 0.
func (p *SlottedPage) InitEmpty() error {
	if err := p.setSlotCount(0); err != nil {
		return err
	}
	return p.setFreeSpaceOffset(0)
}

func (p *SlottedPage) footerOffset() int { return p.v.Len() - footerFieldWidth }
func (p *SlottedPage) slotCountOffset() int {
	return p.v.Len() - footerFieldWidth
}
func (p *SlottedPage) freeSpaceOffsetOffset() int {
	return p.v.Len() - 2*footerFieldWidth
}

// slotOffset returns the byte offset of slot i's (offset,length) pair.
// Slots are laid out so slot 0 sits immediately before freeSpaceOffset,
// slot 1 before that, and so on — the directory grows toward the head
// of the page as slotCount increases.
func (p *SlottedPage) slotOffset(i int) int {
	return p.freeSpaceOffsetOffset() - (i+1)*slotEntryWidth
}

func (p *SlottedPage) slotCount() (int, error) {
	n, err := p.v.GetU32BE(p.slotCountOffset())
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (p *SlottedPage) setSlotCount(n int) error {
	return p.v.SetU32BE(p.slotCountOffset(), uint32(n))
}

func (p *SlottedPage) freeSpaceOffset() (uint32, error) {
	return p.v.GetU32BE(p.freeSpaceOffsetOffset())
}

func (p *SlottedPage) setFreeSpaceOffset(off uint32) error {
	return p.v.SetU32BE(p.freeSpaceOffsetOffset(), off)
}

// GetSlotEntry returns slot i's (offset, length).
func (p *SlottedPage) GetSlotEntry(i int) (Slot, error) {
	off := p.slotOffset(i)
	o, err := p.v.GetU32BE(off)
	if err != nil {
		return Slot{}, err
	}
	l, err := p.v.GetU32BE(off + footerFieldWidth)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Offset: o, Length: l}, nil
}

func (p *SlottedPage) setSlotEntry(i int, s Slot) error {
	off := p.slotOffset(i)
	if err := p.v.SetU32BE(off, s.Offset); err != nil {
		return err
	}
	return p.v.SetU32BE(off+footerFieldWidth, s.Length)
}

// FreeSpace returns the largest size a fresh AllocateSlot(n) could
// satisfy: spec §4.4's `max(largestFreeBlock, trailingFree) −
// (firstFreedSlot == null ? 8 : 0)`. The subtraction accounts for the
// 8-byte slot-directory entry an allocation must additionally write
// when there is no already-freed slot index available to reuse —
// without it, a record sized to exactly fill the trailing gap would
// overlap the new slot entry once it's written.
func (p *SlottedPage) FreeSpace() (int, error) {
	n, err := p.slotCount()
	if err != nil {
		return 0, err
	}
	fso, err := p.freeSpaceOffset()
	if err != nil {
		return 0, err
	}
	directoryStart := p.freeSpaceOffsetOffset() - n*slotEntryWidth
	trailing := directoryStart - int(fso)

	hasFreedSlot := false
	for i := 0; i < n; i++ {
		s, err := p.GetSlotEntry(i)
		if err != nil {
			return 0, err
		}
		if s.free() {
			hasFreedSlot = true
			break
		}
	}

	blocks, err := p.IterFreeBlocks()
	if err != nil {
		return 0, err
	}
	largest := 0
	for _, b := range blocks {
		if int(b.Length) > largest {
			largest = int(b.Length)
		}
	}

	free := trailing
	if largest > free {
		free = largest
	}
	if !hasFreedSlot {
		free -= slotEntryWidth
	}
	if free < 0 {
		free = 0
	}
	return free, nil
}

// AllocateSlot reserves nBytes of record storage, returning the slot
// index it was placed at and the slot entry itself. It first looks for
// a freed slot (length 0) whose slot-index area is immediately backed
// by a free block of at least nBytes (per the tie-break rule: lowest
// free-slot index, first-fit free block in slot-index order); failing
// that, it carves nBytes off freeSpaceOffset, recording them in that
// freed slot if there is one and otherwise in a new slot appended to the
// directory. Fails with codec.ErrOutOfSpace if free_space() < nBytes.
func (p *SlottedPage) AllocateSlot(nBytes int) (int, Slot, error) {
	free, err := p.FreeSpace()
	if err != nil {
		return 0, Slot{}, err
	}
	if free < nBytes {
		return 0, Slot{}, &codec.ErrOutOfSpace{Offset: p.freeSpaceOffsetOffset(), Need: nBytes, Have: free}
	}

	blocks, err := p.IterFreeBlocks()
	if err != nil {
		return 0, Slot{}, err
	}
	n, err := p.slotCount()
	if err != nil {
		return 0, Slot{}, err
	}

	freeSlotIdx := -1
	for i := 0; i < n; i++ {
		s, err := p.GetSlotEntry(i)
		if err != nil {
			return 0, Slot{}, err
		}
		if s.free() {
			freeSlotIdx = i
			break
		}
	}

	if freeSlotIdx >= 0 {
		for _, b := range blocks {
			if int(b.Length) >= nBytes {
				s := Slot{Offset: b.Offset, Length: uint32(nBytes)}
				if err := p.setSlotEntry(freeSlotIdx, s); err != nil {
					return 0, Slot{}, err
				}
				return freeSlotIdx, s, nil
			}
		}
	}

	fso, err := p.freeSpaceOffset()
	if err != nil {
		return 0, Slot{}, err
	}
	s := Slot{Offset: fso, Length: uint32(nBytes)}
	if err := p.setFreeSpaceOffset(fso + uint32(nBytes)); err != nil {
		return 0, Slot{}, err
	}
	if freeSlotIdx >= 0 {
		if err := p.setSlotEntry(freeSlotIdx, s); err != nil {
			return 0, Slot{}, err
		}
		return freeSlotIdx, s, nil
	}
	if err := p.setSlotCount(n + 1); err != nil {
		return 0, Slot{}, err
	}
	if err := p.setSlotEntry(n, s); err != nil {
		return 0, Slot{}, err
	}
	return n, s, nil
}

// FreeSlot releases slot i, then recomputes freeSpaceOffset as the
// maximum offset+length over remaining live slots and trims trailing
// freed slots from the directory.
func (p *SlottedPage) FreeSlot(i int) error {
	if err := p.setSlotEntry(i, Slot{}); err != nil {
		return err
	}

	n, err := p.slotCount()
	if err != nil {
		return err
	}

	var maxEnd uint32
	for j := 0; j < n; j++ {
		s, err := p.GetSlotEntry(j)
		if err != nil {
			return err
		}
		if s.free() {
			continue
		}
		if end := s.Offset + s.Length; end > maxEnd {
			maxEnd = end
		}
	}
	if err := p.setFreeSpaceOffset(maxEnd); err != nil {
		return err
	}

	trimmed := n
	for trimmed > 0 {
		s, err := p.GetSlotEntry(trimmed - 1)
		if err != nil {
			return err
		}
		if !s.free() {
			break
		}
		trimmed--
	}
	return p.setSlotCount(trimmed)
}

// IterSlots returns every slot currently in the directory, in index
// order, including freed ones.
func (p *SlottedPage) IterSlots() ([]Slot, error) {
	n, err := p.slotCount()
	if err != nil {
		return nil, err
	}
	out := make([]Slot, n)
	for i := 0; i < n; i++ {
		s, err := p.GetSlotEntry(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// IterFreeBlocks returns the gaps between live records, sorted by
// offset (freed slots carry no offset/length of their own once
// free_slot zeroes the entry, so the vacated region is recovered as a
// gap in the offset-ordered live layout instead).
func (p *SlottedPage) IterFreeBlocks() ([]Slot, error) {
	slots, err := p.IterSlots()
	if err != nil {
		return nil, err
	}

	type span struct{ off, end uint32 }
	var live []span
	for _, s := range slots {
		if s.free() {
			continue
		}
		live = append(live, span{s.Offset, s.Offset + s.Length})
	}
	for i := 1; i < len(live); i++ {
		for j := i; j > 0 && live[j-1].off > live[j].off; j-- {
			live[j-1], live[j] = live[j], live[j-1]
		}
	}

	var gaps []Slot
	var cursor uint32
	for _, s := range live {
		if s.off > cursor {
			gaps = append(gaps, Slot{Offset: cursor, Length: s.off - cursor})
		}
		if s.end > cursor {
			cursor = s.end
		}
	}
	return gaps, nil
}
