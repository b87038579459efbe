// Package pagestore implements a paged buffer pool: a fixed-size page
// cache over a single host file, with a freelist threaded through the
// first 8 bytes of each freed page, read-through caching, dirty
// tracking, and atomic commit of a batch of dirty pages.
package pagestore

import "github.com/pcardune/godb/codec"

// PageID identifies a page by its absolute byte offset within the host
// file — there is no separate logical page index.
type PageID uint64

// DefaultPageSize is used when no explicit page size is configured.
const DefaultPageSize = 4096

// freePageIDWidth is the width, in bytes, of the free_page_id header
// field and of the next-pointer threaded through a freed page.
const freePageIDWidth = 8

// View returns a codec view over a raw page buffer, for callers that
// need low-level field access (slotted pages, B+-tree nodes, ...).
func View(buf []byte) *codec.View { return codec.NewView(buf) }
