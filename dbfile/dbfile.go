// Package dbfile implements spec component C12: the database file
// header, the buffer pool it mounts, and the system catalog tables
// (__dbPageIds, __dbTables, __dbSchemas, __dbTableColumns, __dbIndexes,
// __dbMigrations, __dbSequences) that together let get_or_create_table
// resolve a named, schema'd Table without the caller ever naming a page
// id directly.
package dbfile

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/pcardune/godb/btree"
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/pagestore"
	"github.com/pcardune/godb/table"
)

// headerSize is the byte width of the file header: page_size (u32) +
// header_page_id (u64), spec §4.12/§6.
const headerSize = 12

// DefaultDB is the namespace get_or_create_table uses when callers
// don't name one.
const DefaultDB = "default"

// pageIDsOrder is the B+-tree order __dbPageIds' own index uses. The
// index holds one entry per table heap plus one per indexed or unique
// column; order 4 lets each node hold up to 8 keys, twice the 4 that
// table.DefaultOrder (2) allows.
const pageIDsOrder = 4

// Options configures Open, mirroring the teacher's struct-literal
// PagerConfig rather than flags, env vars, or a config file (spec §6:
// "No CLI, no env vars, no network surface").
type Options struct {
	// PageSize only matters when creating a fresh file; an existing
	// file's page size always comes from its own header. Defaults to
	// pagestore.DefaultPageSize.
	PageSize int
	// Create opens a missing file instead of failing.
	Create bool
	// Truncate discards any existing file content and starts fresh.
	Truncate bool
}

// Db is an open database file.
type Db struct {
	f        *os.File
	backend  pagestore.Backend
	bp       *pagestore.BufferPool
	pageSize int

	headerPageID pagestore.PageID // also __dbPageIds' own index header page
	pageIDs      *btree.DiskIndex

	tablesTable     *table.Table
	schemasTable    *table.Table
	columnsTable    *table.Table
	indexesTable    *table.Table
	migrationsTable *table.Table
	sequencesTable  *table.Table

	mu       sync.Mutex
	opened   map[string]*table.Table // "db.table" -> open handle
	seriesMu map[string]*sync.Mutex  // per-sequence-name lock, spec §6 serial
}

func encodePageID(pid pagestore.PageID) []byte {
	buf := make([]byte, 8)
	codec.NewView(buf).SetU64BE(0, uint64(pid))
	return buf
}

func decodePageID(b []byte) pagestore.PageID {
	v, _ := codec.NewView(b).GetU64BE(0)
	return pagestore.PageID(v)
}

func writeFileHeader(backend pagestore.Backend, pageSize int, headerPageID pagestore.PageID) error {
	buf := make([]byte, headerSize)
	v := codec.NewView(buf)
	if err := v.SetU32BE(0, uint32(pageSize)); err != nil {
		return err
	}
	if err := v.SetU64BE(4, uint64(headerPageID)); err != nil {
		return err
	}
	return backend.WriteAt(0, buf)
}

func readFileHeader(backend pagestore.Backend) (pageSize int, headerPageID pagestore.PageID, err error) {
	buf := make([]byte, headerSize)
	if _, err := backend.ReadAt(0, buf); err != nil {
		return 0, 0, fmt.Errorf("dbfile: read file header: %w", err)
	}
	v := codec.NewView(buf)
	ps, err := v.GetU32BE(0)
	if err != nil {
		return 0, 0, err
	}
	hp, err := v.GetU64BE(4)
	if err != nil {
		return 0, 0, err
	}
	return int(ps), pagestore.PageID(hp), nil
}

// Open mounts the database file at path, creating and bootstrapping a
// fresh one if it is empty and Create or Truncate is set (spec
// §4.12).
func Open(path string, opts Options) (*Db, error) {
	flags := os.O_RDWR
	if opts.Create {
		flags |= os.O_CREATE
	}
	if opts.Truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}

	backend := pagestore.NewFileBackend(f)
	size, err := backend.Size()
	if err != nil {
		f.Close()
		return nil, err
	}

	db := &Db{
		f:        f,
		backend:  backend,
		opened:   make(map[string]*table.Table),
		seriesMu: make(map[string]*sync.Mutex),
	}

	if size == 0 && (opts.Create || opts.Truncate) {
		if err := db.createFresh(backend, opts); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		if err := db.mountExisting(backend); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := db.bootstrapCatalog(); err != nil {
		f.Close()
		return nil, err
	}

	return db, nil
}

func (db *Db) createFresh(backend pagestore.Backend, opts Options) error {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = pagestore.DefaultPageSize
	}
	if err := writeFileHeader(backend, pageSize, 0); err != nil {
		return err
	}
	bp, err := pagestore.Open(backend, headerSize, pageSize)
	if err != nil {
		return err
	}
	headerPageID, err := bp.AllocatePage()
	if err != nil {
		return err
	}
	if err := writeFileHeader(backend, pageSize, headerPageID); err != nil {
		return err
	}
	if err := bp.Commit(); err != nil {
		return err
	}

	db.bp = bp
	db.pageSize = pageSize
	db.headerPageID = headerPageID
	db.pageIDs = btree.OpenDiskIndex(bp, headerPageID, pageIDsOrder, bytes.Compare, bytes.Equal)
	return nil
}

func (db *Db) mountExisting(backend pagestore.Backend) error {
	pageSize, headerPageID, err := readFileHeader(backend)
	if err != nil {
		return err
	}
	bp, err := pagestore.Open(backend, headerSize, pageSize)
	if err != nil {
		return err
	}
	db.bp = bp
	db.pageSize = pageSize
	db.headerPageID = headerPageID
	db.pageIDs = btree.OpenDiskIndex(bp, headerPageID, pageIDsOrder, bytes.Compare, bytes.Equal)
	return nil
}

// pageFor returns the page id __dbPageIds holds for key, allocating and
// recording a fresh page under key if none is recorded yet (spec
// §4.12: "other system-table roots are found/allocated by looking up
// pageType in __dbPageIds").
func (db *Db) pageFor(key string) (pagestore.PageID, error) {
	existing, err := db.pageIDs.Get([]byte(key))
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return decodePageID(existing[0]), nil
	}
	pid, err := db.bp.AllocatePage()
	if err != nil {
		return 0, err
	}
	if err := db.pageIDs.Insert([]byte(key), encodePageID(pid)); err != nil {
		return 0, err
	}
	if err := db.bp.Commit(); err != nil {
		return 0, err
	}
	return pid, nil
}

// PageSize returns the page size this database file was created with.
func (db *Db) PageSize() int { return db.pageSize }

// Stats exposes the underlying buffer pool's bookkeeping counters, for
// tests and tooling (spec §8 persistence/freelist assertions).
func (db *Db) Stats() pagestore.Stats { return db.bp.Stats() }

// Close releases the host file handle. Any uncommitted writes made
// outside of a table operation's own commit are lost (spec §5: "close
// releases it").
func (db *Db) Close() error {
	return db.f.Close()
}
