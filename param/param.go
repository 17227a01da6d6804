// Package param holds the C2 data model shared by every reqdata parser:
// a Param (a parsed name/value pair plus optional header/upload
// metadata), the HeaderBag attribute multimap, and the UploadRef that
// ties a multipart file part to its spool.
package param

import (
	"github.com/curol/reqdata/status"
	"github.com/curol/reqdata/table"
)

// HeaderBag is the ordered multimap of attribute-name to attribute-value
// produced by the header tokenizer (C5), e.g. the parsed attributes of
// `Content-Disposition: form-data; name="x"; filename="y"`.
type HeaderBag = table.Table[string]

// NewHeaderBag returns an empty HeaderBag.
func NewHeaderBag() *HeaderBag {
	return table.New[string]()
}

// SpoolHandle is the backing store for an upload part's body: in memory
// below the configured threshold, promoted to a temp file above it. The
// concrete implementation lives in package multipart; param only needs
// the contract so it can hang an UploadRef off a Param without an import
// cycle back to multipart.
type SpoolHandle interface {
	// Write appends a chunk to the spool, promoting to disk if needed.
	Write(p []byte) (int, error)
	// Size returns the number of bytes written so far.
	Size() int64
	// InMemory reports whether the spool has not yet been promoted to a
	// temp file.
	InMemory() bool
	// Path returns the temp-file path, or "" while InMemory.
	Path() string
	// Bytes returns the in-memory buffer. Only valid while InMemory.
	Bytes() []byte
	// Close releases any temp file handle. It does not delete the file.
	Close() error
}

// UploadRef describes a multipart file part per spec section 3.
type UploadRef struct {
	Filename    string
	ContentType string
	Spool       SpoolHandle
	Size        uint64
	Status      status.Status
}

// Param is one parsed (name, value) pair plus optional metadata, per
// spec section 3. Values are immutable after insertion.
type Param struct {
	Name    string
	Value   string
	Info    *HeaderBag
	Upload  *UploadRef
	Tainted bool
	Charset Charset
}

// New returns a Param with the given name and value, charset defaulted
// to ascii per the common case of URL-encoded and cookie data.
func New(name, value string) *Param {
	return &Param{Name: name, Value: value, Charset: CharsetASCII}
}

// Table is the C3 ordered multimap specialized to Param entries: the
// concrete type returned by the URL-encoded and multipart parsers and
// consumed by the façade's overlay view.
type Table = table.Table[*Param]

// NewTable returns an empty parameter Table.
func NewTable() *Table {
	return table.New[*Param]()
}

// FirstValue is a convenience over Table.First that extracts just the
// string value, mirroring the common "first(name)->Value?" lookup of
// spec section 4.2.
func FirstValue(t *Table, name string) (string, bool) {
	p, ok := t.First(name)
	if !ok {
		return "", false
	}
	return p.Value, true
}

// AllValues is a convenience over Table.All that extracts just the
// string values, in insertion order.
func AllValues(t *Table, name string) []string {
	ps := t.All(name)
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Value)
	}
	return out
}
