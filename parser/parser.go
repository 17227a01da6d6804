// Package parser defines the common contract (C9) that the URL-encoded
// and multipart parsers implement: feed(bytes) -> status plus a hook
// registry, in the teacher's tagged-union-over-interface style rather
// than open inheritance (spec section 9, "dynamic dispatch for parser
// variants -> tagged variants").
package parser

import (
	"github.com/curol/reqdata/param"
	"github.com/curol/reqdata/queue"
	"github.com/curol/reqdata/reqconfig"
	"github.com/curol/reqdata/status"
)

// HookFunc is invoked once per spooled upload chunk, before the chunk is
// appended to the spool. A non-OK return halts the hook chain and makes
// the parser report INTERRUPT.
type HookFunc func(data any, upload *param.UploadRef, chunk []byte) status.Status

type hookEntry struct {
	name string
	cb   HookFunc
	data any
}

// HookChain is a list of (callback, data) pairs invoked in registration
// order; the first non-OK return short-circuits the chain.
type HookChain struct {
	hooks []hookEntry
}

// Add registers a hook under name.
func (hc *HookChain) Add(name string, cb HookFunc, data any) {
	hc.hooks = append(hc.hooks, hookEntry{name: name, cb: cb, data: data})
}

// Invoke runs every registered hook in order for one upload chunk,
// stopping at the first non-OK result.
func (hc *HookChain) Invoke(upload *param.UploadRef, chunk []byte) status.Status {
	if hc == nil {
		return status.OK
	}
	for _, h := range hc.hooks {
		if st := h.cb(h.data, upload, chunk); st != status.OK {
			return st
		}
	}
	return status.OK
}

// FeedContext carries the shared, read-only configuration a parser
// needs during Feed. Per spec section 5, this is shared read-only
// between the parser and its hooks; the destination table is
// exclusively owned by the parser during Feed. Upload hooks are
// registered directly on the Parser instance via AddHook, not carried
// here, since each Parser owns and invokes its own HookChain.
type FeedContext struct {
	Config *reqconfig.Config
}

// Parser is the shared contract C7 (urlencoded.Parser) and C8
// (multipart.Parser) implement.
type Parser interface {
	// Feed consumes as much of q as it can, appending results to out,
	// and returns the resulting status. Sticky: once Status() is
	// terminal and non-OK, further Feed calls are no-ops that return
	// the same status.
	Feed(q *queue.Queue, out *param.Table, ctx *FeedContext) status.Status
	// AddHook registers an upload-chunk hook. Parsers that never spool
	// uploads (e.g. the URL-encoded parser) accept registrations but
	// never invoke them.
	AddHook(name string, cb HookFunc, data any)
	// Status returns the parser's current sticky status.
	Status() status.Status
	// Close tells the parser no further bytes will arrive. It commits
	// any pending partial entry (for parsers, like urlencoded, whose
	// grammar has no explicit terminal delimiter) and returns the final
	// status. Parsers that already reached a terminal status from Feed
	// (e.g. multipart hitting its closing boundary) treat Close as a
	// no-op returning that status.
	Close(out *param.Table, ctx *FeedContext) status.Status
}
