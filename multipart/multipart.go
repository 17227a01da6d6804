// Package multipart implements the streaming multipart/form-data parser
// (C8): boundary scanning, per-part header parsing, upload spooling with
// an optional progress hook, and bounded nested-multipart recursion, per
// spec section 4.7.
//
// States: PREAMBLE -> BOUNDARY -> PART_HEADERS -> PART_BODY -> (BOUNDARY
// | COMPLETE). The boundary delimiter is CRLF "--" boundary; a trailing
// "--" marks the terminal boundary.
package multipart

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/curol/reqdata/header"
	"github.com/curol/reqdata/param"
	"github.com/curol/reqdata/parser"
	"github.com/curol/reqdata/queue"
	"github.com/curol/reqdata/reqconfig"
	"github.com/curol/reqdata/status"
)

// nestSem bounds how many nested multipart sub-parsers may be open at
// once across every Parser instance in the process, so a façade feeding
// many requests' parsers from a shared worker pool cannot be driven into
// unbounded concurrent sub-parser allocation by adversarial nesting.
// The per-message depth limit (max_nesting) is still enforced separately
// as a plain counter per spec section 4.7.3; this semaphore is a process-
// wide resource guard, not the nesting-depth check itself.
var nestSem = semaphore.NewWeighted(int64(runtime.NumCPU() * 4))

type state int

const (
	statePreamble state = iota
	stateBoundary
	statePartHeaders
	statePartBody
	stateComplete
)

// Parser is the resumable multipart/form-data parser.
type Parser struct {
	st    status.Status
	state state

	boundary   []byte // bare boundary bytes, no leading "--"
	firstDelim []byte // "--" + boundary: the very first boundary in the stream
	delim      []byte // "\r\n--" + boundary: every subsequent boundary

	depth uint8

	hooks parser.HookChain

	totalBytesSeen uint64

	// Current-part state, reset by resetPart on entering PART_HEADERS.
	curParam       *param.Param
	curUpload      *param.UploadRef
	curSpool       *spool
	curIsFile      bool
	curValueBuf    []byte
	nested         *Parser
	nestedAcquired bool
}

// New returns a parser for the given bare boundary (without the leading
// "--"), as extracted from a Content-Type header's boundary= attribute.
func New(boundary string) *Parser {
	return &Parser{
		boundary:   []byte(boundary),
		firstDelim: []byte("--" + boundary),
		delim:      []byte("\r\n--" + boundary),
	}
}

// NewFromContentType extracts the boundary from a full Content-Type
// header value (e.g. `multipart/form-data; boundary=AaB03x`) and returns
// a ready parser, or BADHEADER if the value isn't multipart/* or carries
// no boundary.
func NewFromContentType(contentType string) (*Parser, status.Status) {
	main, attrs, st := header.Parse(contentType)
	if st != status.OK {
		return nil, st
	}
	if !strings.HasPrefix(strings.ToLower(main), "multipart/") {
		return nil, status.BADHEADER
	}
	boundary, ok := attrs.First("boundary")
	if !ok || boundary == "" || len(boundary) > 70 {
		return nil, status.BADHEADER
	}
	return New(boundary), status.OK
}

func (p *Parser) Status() status.Status { return p.st }

func (p *Parser) AddHook(name string, cb parser.HookFunc, data any) {
	p.hooks.Add(name, cb, data)
}

// fail sets the sticky error status and, if a part is mid-flight, stamps
// its UploadRef with the same status so downstream code can tell a
// truncated upload from a complete one, per spec section 4.7's failure
// recovery paragraph.
func (p *Parser) fail(st status.Status) status.Status {
	p.st = st
	if p.curUpload != nil && !p.curUpload.Status.Terminal() {
		p.curUpload.Status = st
	}
	return st
}

func (p *Parser) setDepth(d uint8) { p.depth = d }

// Feed implements parser.Parser.
func (p *Parser) Feed(q *queue.Queue, out *param.Table, ctx *parser.FeedContext) status.Status {
	for {
		if p.st.Failed() {
			return p.st
		}
		if p.state == stateComplete {
			p.st = status.OK
			return status.OK
		}
		switch p.state {
		case statePreamble:
			if st := p.stepPreamble(q, ctx); st != status.OK {
				return st
			}
		case stateBoundary:
			if st := p.stepBoundary(q, ctx); st != status.OK {
				return st
			}
		case statePartHeaders:
			if st := p.stepPartHeaders(q, out, ctx); st != status.OK {
				return st
			}
		case statePartBody:
			if st := p.stepPartBody(q, out, ctx); st != status.OK {
				return st
			}
		}
	}
}

// consume advances q by n bytes, tallying them against max_body_bytes.
// Returns OK, or OVERLIMIT once max_body_bytes is exceeded.
func (p *Parser) consume(q *queue.Queue, n int, ctx *parser.FeedContext) status.Status {
	if n <= 0 {
		return status.OK
	}
	q.Consume(n)
	p.totalBytesSeen += uint64(n)
	if ctx != nil && ctx.Config != nil && ctx.Config.MaxBodyBytes > 0 && p.totalBytesSeen > ctx.Config.MaxBodyBytes {
		return p.fail(status.OVERLIMIT)
	}
	return status.OK
}

// stepPreamble discards bytes (liberal on preamble per spec section 6)
// until the first boundary line is found, retaining only the
// confirmed-safe tail that could still be the start of the boundary.
func (p *Parser) stepPreamble(q *queue.Queue, ctx *parser.FeedContext) status.Status {
	idx, found := q.FindDelim(p.firstDelim)
	if !found {
		safe := q.Len() - (len(p.firstDelim) - 1)
		if st := p.consume(q, safe, ctx); st != status.OK {
			return st
		}
		return status.INCOMPLETE
	}
	if st := p.consume(q, idx+len(p.firstDelim), ctx); st != status.OK {
		return st
	}
	p.state = stateBoundary
	return status.OK
}

// stepBoundary classifies what follows a boundary line: "--" (terminal)
// or CRLF (another part follows).
func (p *Parser) stepBoundary(q *queue.Queue, ctx *parser.FeedContext) status.Status {
	b := q.Peek(2)
	if len(b) < 2 {
		return status.INCOMPLETE
	}
	switch {
	case b[0] == '-' && b[1] == '-':
		if st := p.consume(q, 2, ctx); st != status.OK {
			return st
		}
		p.state = stateComplete
		return status.OK
	case b[0] == '\r' && b[1] == '\n':
		if st := p.consume(q, 2, ctx); st != status.OK {
			return st
		}
		p.resetPart()
		p.state = statePartHeaders
		return status.OK
	default:
		return p.fail(status.MISMATCH)
	}
}

func (p *Parser) resetPart() {
	p.curParam = nil
	p.curUpload = nil
	p.curSpool = nil
	p.curIsFile = false
	p.curValueBuf = nil
	p.nested = nil
	p.nestedAcquired = false
}

// stepPartHeaders accumulates header bytes until CRLF CRLF, then parses
// and classifies the part.
func (p *Parser) stepPartHeaders(q *queue.Queue, out *param.Table, ctx *parser.FeedContext) status.Status {
	idx, found := q.FindDelim([]byte("\r\n\r\n"))
	if !found {
		return status.INCOMPLETE
	}
	raw := q.Peek(idx)
	headerBlock := make([]byte, len(raw))
	copy(headerBlock, raw)
	if st := p.consume(q, idx+4, ctx); st != status.OK {
		return st
	}
	return p.parsePartHeaders(headerBlock, out, ctx)
}

// unfoldHeaders splits a raw header block on CRLF and folds continuation
// lines (leading SP/HT) into their owner with a single collapsing SP,
// per the normalization resolved in SPEC_FULL.md's Open Question 3.
func unfoldHeaders(raw []byte) []string {
	rawLines := strings.Split(string(raw), "\r\n")
	var lines []string
	for _, l := range rawLines {
		if l == "" {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += " " + strings.TrimLeft(l, " \t")
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func (p *Parser) parsePartHeaders(raw []byte, out *param.Table, ctx *parser.FeedContext) status.Status {
	lines := unfoldHeaders(raw)
	maxHeaders := uint32(64)
	if ctx != nil && ctx.Config != nil && ctx.Config.MaxHeaders > 0 {
		maxHeaders = ctx.Config.MaxHeaders
	}
	if uint32(len(lines)) > maxHeaders {
		return p.fail(status.OVERLIMIT)
	}

	bag := param.NewHeaderBag()
	for _, l := range lines {
		name, val, found := strings.Cut(l, ":")
		if !found {
			return p.fail(status.BADHEADER)
		}
		bag.Insert(strings.TrimSpace(name), strings.TrimSpace(val))
	}

	dispValue, ok := bag.First("Content-Disposition")
	if !ok {
		return p.fail(status.BADHEADER)
	}
	dispMain, dispAttrs, st := header.Parse(dispValue)
	if st != status.OK {
		return p.fail(st)
	}
	if !strings.EqualFold(dispMain, "form-data") {
		return p.fail(status.BADHEADER)
	}
	name, ok := dispAttrs.First("name")
	if !ok || name == "" {
		return p.fail(status.BADHEADER)
	}
	filename, isFile := dispAttrs.First("filename")

	contentType, _ := bag.First("Content-Type")

	if strings.HasPrefix(strings.ToLower(contentType), "multipart/") {
		return p.startNested(contentType, out, ctx)
	}

	if isFile {
		if ctx != nil && ctx.Config != nil && ctx.Config.DisableUploads {
			return p.fail(status.OVERLIMIT)
		}
		sp := newSpool(configOf(ctx))
		upload := &param.UploadRef{
			Filename:    filename,
			ContentType: contentType,
			Spool:       sp,
			Status:      status.INCOMPLETE,
		}
		prm := &param.Param{Name: name, Info: bag, Upload: upload, Charset: param.CharsetASCII}
		out.Insert(name, prm)
		p.curParam = prm
		p.curUpload = upload
		p.curSpool = sp
		p.curIsFile = true
	} else {
		prm := &param.Param{Name: name, Info: bag, Charset: param.CharsetASCII}
		out.Insert(name, prm)
		p.curParam = prm
		p.curIsFile = false
	}
	p.state = statePartBody
	return status.OK
}

func configOf(ctx *parser.FeedContext) *reqconfig.Config {
	if ctx == nil {
		return nil
	}
	return ctx.Config
}

func (p *Parser) startNested(contentType string, out *param.Table, ctx *parser.FeedContext) status.Status {
	maxNest := uint8(8)
	if ctx != nil && ctx.Config != nil && ctx.Config.MaxNesting > 0 {
		maxNest = ctx.Config.MaxNesting
	}
	if p.depth+1 > maxNest {
		return p.fail(status.OVERLIMIT)
	}
	child, st := NewFromContentType(contentType)
	if st != status.OK {
		return p.fail(st)
	}
	if err := nestSem.Acquire(context.Background(), 1); err != nil {
		return p.fail(status.GENERIC)
	}
	child.setDepth(p.depth + 1)
	child.hooks = p.hooks
	p.nested = child
	p.nestedAcquired = true
	p.state = statePartBody
	return status.OK
}

func (p *Parser) releaseNested() {
	if p.nestedAcquired {
		nestSem.Release(1)
		p.nestedAcquired = false
	}
}

// stepPartBody scans for the next boundary delimiter, emitting the
// confirmed-safe prefix of the body (never a partial boundary) to the
// current part's destination (spool, value buffer, or nested parser).
func (p *Parser) stepPartBody(q *queue.Queue, out *param.Table, ctx *parser.FeedContext) status.Status {
	idx, found := q.FindDelim(p.delim)
	if found {
		chunk := q.Peek(idx)
		if len(chunk) > 0 {
			if st := p.appendBody(chunk, out, ctx); st != status.OK {
				return st
			}
		}
		if st := p.consume(q, idx+len(p.delim), ctx); st != status.OK {
			return st
		}
		return p.finishPart(out, ctx)
	}
	safeLen := q.Len() - len(p.delim)
	if safeLen > 0 {
		chunk := q.Peek(safeLen)
		if st := p.appendBody(chunk, out, ctx); st != status.OK {
			return st
		}
		if st := p.consume(q, safeLen, ctx); st != status.OK {
			return st
		}
	}
	return status.INCOMPLETE
}

func (p *Parser) appendBody(chunk []byte, out *param.Table, ctx *parser.FeedContext) status.Status {
	if p.nested != nil {
		subQ := queue.New()
		subQ.Append(chunk)
		st := p.nested.Feed(subQ, out, ctx)
		subQ.Release()
		if st.Failed() {
			return p.fail(st)
		}
		return status.OK
	}
	if p.curIsFile {
		if st := p.hooks.Invoke(p.curUpload, chunk); st != status.OK {
			p.curUpload.Status = status.INTERRUPT
			return p.fail(status.INTERRUPT)
		}
		if _, err := p.curSpool.Write(chunk); err != nil {
			return p.fail(status.GENERIC)
		}
		p.curUpload.Size += uint64(len(chunk))
		return status.OK
	}
	p.curValueBuf = append(p.curValueBuf, chunk...)
	return status.OK
}

func isASCIIBytes(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func (p *Parser) finishPart(out *param.Table, ctx *parser.FeedContext) status.Status {
	switch {
	case p.nested != nil:
		st := p.nested.Close(out, ctx)
		p.releaseNested()
		if st.Failed() {
			return p.fail(st)
		}
	case p.curIsFile:
		p.curUpload.Status = status.OK
	case p.curParam != nil:
		p.curParam.Value = string(p.curValueBuf)
		if !isASCIIBytes(p.curValueBuf) {
			cs := param.DetectCharset(p.curValueBuf)
			p.curParam.Charset = cs
			p.curParam.Tainted = cs == param.CharsetUnknown
		}
	}
	p.resetPart()
	p.state = stateBoundary
	return status.OK
}

// Close reports BADDATA if the message ended before a terminal boundary
// was seen (a truncated multipart body); otherwise it is a no-op
// returning the already-terminal status.
func (p *Parser) Close(out *param.Table, ctx *parser.FeedContext) status.Status {
	if p.st.Failed() {
		return p.st
	}
	if p.state == stateComplete {
		p.st = status.OK
		return status.OK
	}
	return p.fail(status.BADDATA)
}
