// Package errs defines the storage engine's error taxonomy: a small set
// of typed values carried as ordinary Go errors rather than thrown as
// control flow, each a concrete error struct with an Error() method and
// errors.As-friendly fields.
package errs

import "fmt"

// InvalidRecord reports a column that failed validation on insert.
type InvalidRecord struct {
	Column string
	Reason string
}

func (e *InvalidRecord) Error() string {
	return fmt.Sprintf("invalid record: column %q: %s", e.Column, e.Reason)
}

// Duplicate reports a unique-constraint violation.
type Duplicate struct {
	Column string
}

func (e *Duplicate) Error() string {
	return fmt.Sprintf("duplicate value for unique column %q", e.Column)
}

// NotFound reports a missing named resource (table, schema, index, row).
type NotFound struct {
	What string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

// NoSpace reports that a write would overflow a slot, page, or view.
type NoSpace struct {
	Needed, Available int
}

func (e *NoSpace) Error() string {
	return fmt.Sprintf("no space: need %d, have %d", e.Needed, e.Available)
}

// ReadPastEnd reports a decode that ran past the end of its view.
type ReadPastEnd struct {
	Offset, Need, Have int
}

func (e *ReadPastEnd) Error() string {
	return fmt.Sprintf("read past end: need %d bytes at offset %d, have %d", e.Need, e.Offset, e.Have)
}

// WrongNodeType is raised by the B+-tree node store's tag-dispatched
// decode: it is the control-flow signal used to retry as the other node
// kind, not an anomaly.
type WrongNodeType struct {
	Found, Expected byte
}

func (e *WrongNodeType) Error() string {
	return fmt.Sprintf("wrong node type: found tag %d, expected %d", e.Found, e.Expected)
}

// UseAfterDrop reports a call made on a resource (index, linked page
// list, heap page file) after it was dropped.
type UseAfterDrop struct {
	What string
}

func (e *UseAfterDrop) Error() string {
	return fmt.Sprintf("use after drop: %s", e.What)
}

// SchemaMismatch reports a persisted column differing from a supplied
// schema on get_or_create_table.
type SchemaMismatch struct {
	Column string
	Field  string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: column %q field %q", e.Column, e.Field)
}

// CorruptPage reports a page whose structural invariants don't hold.
type CorruptPage struct {
	Reason string
}

func (e *CorruptPage) Error() string {
	return fmt.Sprintf("corrupt page: %s", e.Reason)
}

// Io wraps a host file read/write failure.
type Io struct {
	Cause error
}

func (e *Io) Error() string {
	return fmt.Sprintf("io: %v", e.Cause)
}

func (e *Io) Unwrap() error { return e.Cause }
