// Package urlencoded implements the streaming
// application/x-www-form-urlencoded parser (C7): a single state machine
// over {key-byte, '=', '&', ';', '%', '+', end}, resumable across
// arbitrary chunk boundaries, per spec section 4.6.
package urlencoded

import (
	"github.com/curol/reqdata/param"
	"github.com/curol/reqdata/parser"
	"github.com/curol/reqdata/queue"
	"github.com/curol/reqdata/status"
)

type fieldState int

const (
	stateKey fieldState = iota
	stateVal
)

// Parser is the resumable application/x-www-form-urlencoded parser.
// Its zero value is ready to use.
type Parser struct {
	st    status.Status
	state fieldState

	keyBuf []byte
	valBuf []byte

	inPercent bool
	pctDigits []byte // 0, 1, or 2 collected hex digits of a %HH escape

	pairCount uint32
	bytesSeen uint64
	sawAnyByte bool

	hooks parser.HookChain
}

// New returns a ready-to-use Parser.
func New() *Parser {
	return &Parser{}
}

func (p *Parser) Status() status.Status { return p.st }

func (p *Parser) AddHook(name string, cb parser.HookFunc, data any) {
	p.hooks.Add(name, cb, data)
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

func (p *Parser) appendDecoded(b byte) {
	if p.state == stateKey {
		p.keyBuf = append(p.keyBuf, b)
	} else {
		p.valBuf = append(p.valBuf, b)
	}
}

// Feed consumes as many bytes as are available from q, committing
// completed (key,value) pairs to out as separators are found. It
// returns INCOMPLETE when q is exhausted mid-pair; the partial pair is
// retained on the parser and resumed on the next Feed call.
func (p *Parser) Feed(q *queue.Queue, out *param.Table, ctx *parser.FeedContext) status.Status {
	if p.st.Failed() {
		return p.st
	}
	if q.Len() == 0 {
		if !p.sawAnyByte {
			return status.NODATA
		}
		return status.INCOMPLETE
	}
	for {
		b, ok := p.nextByte(q)
		if !ok {
			return status.INCOMPLETE
		}
		p.sawAnyByte = true
		p.bytesSeen++
		if ctx != nil && ctx.Config != nil && ctx.Config.MaxBodyBytes > 0 && p.bytesSeen > ctx.Config.MaxBodyBytes {
			p.st = status.OVERLIMIT
			return p.st
		}

		if p.inPercent {
			if !isHex(b) {
				p.st = status.BADSEQ
				return p.st
			}
			p.pctDigits = append(p.pctDigits, b)
			if len(p.pctDigits) == 2 {
				decoded := hexVal(p.pctDigits[0])<<4 | hexVal(p.pctDigits[1])
				p.appendDecoded(decoded)
				p.inPercent = false
				p.pctDigits = p.pctDigits[:0]
			}
			continue
		}

		switch {
		case b == '%':
			p.inPercent = true
			p.pctDigits = p.pctDigits[:0]
		case b == '+' && p.state == stateVal:
			p.appendDecoded(' ')
		case b == '=' && p.state == stateKey:
			p.state = stateVal
		case b == '&' || b == ';':
			if st := p.commit(out, ctx); st != status.OK {
				return st
			}
		default:
			p.appendDecoded(b)
		}
	}
}

func (p *Parser) nextByte(q *queue.Queue) (byte, bool) {
	b := q.Peek(1)
	if len(b) == 0 {
		return 0, false
	}
	q.Consume(1)
	return b[0], true
}

// commit inserts the current (key,value) pair into out and resets the
// accumulators for the next pair.
func (p *Parser) commit(out *param.Table, ctx *parser.FeedContext) status.Status {
	key := string(p.keyBuf)
	valBytes := append([]byte(nil), p.valBuf...)
	val := string(valBytes)

	prm := param.New(key, val)
	if !isASCIIBytes(valBytes) {
		cs := param.DetectCharset(valBytes)
		prm.Charset = cs
		prm.Tainted = cs == param.CharsetUnknown
	}
	out.Insert(key, prm)
	p.pairCount++

	p.keyBuf = p.keyBuf[:0]
	p.valBuf = p.valBuf[:0]
	p.state = stateKey

	if ctx != nil && ctx.Config != nil && ctx.Config.MaxParams > 0 && p.pairCount > ctx.Config.MaxParams {
		p.st = status.OVERLIMIT
		return p.st
	}
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

// Close commits any pending partial pair once the caller knows no more
// bytes will arrive (e.g. the request body's Content-Length has been
// fully consumed). A pending unresolved %-escape at this point is a
// genuine error, since no further bytes can complete it.
func (p *Parser) Close(out *param.Table, ctx *parser.FeedContext) status.Status {
	if p.st.Failed() {
		return p.st
	}
	if p.inPercent {
		p.st = status.BADSEQ
		return p.st
	}
	if p.sawAnyByte {
		if st := p.commit(out, ctx); st != status.OK {
			return st
		}
	}
	p.st = status.OK
	return status.OK
}
