// Package header implements the structured HTTP header-value tokenizer
// (C5) shared by Cookie, Content-Type, and Content-Disposition parsing:
// `token`, `quoted-string`, and `;`-delimited attribute grammar, per spec
// section 4.4.
//
//	value := token-or-quoted ( OWS ";" OWS attr )*
//	attr  := token "=" token-or-quoted
//	token := 1*<VCHAR except separators>
//	qstring := DQUOTE *( qdtext | "\" CHAR ) DQUOTE
package header

import (
	"strings"

	"github.com/duke-git/lancet/v2/validator"

	"github.com/curol/reqdata/internal/ascii"
	"github.com/curol/reqdata/status"
	"github.com/curol/reqdata/table"
)

// Attrs is the ordered multimap of attribute name to attribute value
// produced by Parse.
type Attrs = table.Table[string]

// Parse tokenizes a complete header value into its main value and
// `;`-delimited attributes. A main value of the media-type form
// `type/subtype` is accepted as one value. Callers (the multipart
// Content-Disposition/Content-Type readers) are expected to have already
// assembled a complete logical line before calling Parse; the tokenizer
// itself does not resume across calls.
func Parse(value string) (main string, attrs *Attrs, st status.Status) {
	s := scanner{s: value}
	main, st = s.readTokenOrQuoted()
	if st != status.OK {
		return "", nil, st
	}
	if !s.atEnd() && s.peek() == '/' {
		s.advance()
		sub, ok := s.readToken()
		if !ok {
			if s.atEnd() {
				return "", nil, status.NOTOKEN
			}
			return "", nil, status.BADCHAR
		}
		main += "/" + sub
	}
	attrs = table.New[string]()
	for {
		s.skipOWS()
		if s.atEnd() {
			break
		}
		if s.peek() != ';' {
			return "", nil, status.BADATTR
		}
		s.advance()
		s.skipOWS()
		if s.atEnd() {
			// Trailing ";" with nothing after it.
			return "", nil, status.BADATTR
		}
		name, ok := s.readToken()
		if !ok || name == "" {
			return "", nil, status.NOATTR
		}
		// Tokens are already restricted to the printable-ASCII,
		// non-separator byte class by IsTokenByte; this is an explicit
		// belt-and-suspenders check rather than a reachable condition.
		if !validator.IsAscii(name) {
			return "", nil, status.BADATTR
		}
		if s.atEnd() || s.peek() != '=' {
			return "", nil, status.BADATTR
		}
		s.advance()
		val, vst := s.readTokenOrQuoted()
		if vst != status.OK {
			return "", nil, vst
		}
		attrs.Insert(name, val)
	}
	return main, attrs, status.OK
}

// AttrEntry is one name[=value] segment of a flat, `;`-delimited
// attribute list parsed by ParseAttrList, used for the Cookie/Set-Cookie
// grammar which (unlike Content-Type/Content-Disposition) has no
// separate leading main value. HasValue distinguishes a bare flag
// attribute (e.g. Secure) from an attribute with an explicit, possibly
// empty, value.
type AttrEntry struct {
	Name     string
	Value    string
	HasValue bool
}

// ParseAttrList tokenizes a flat "name[=value] ( sep name[=value] )*"
// header value, where sep is ";" and, when altSep is non-zero, also
// altSep. Unlike Parse, unquoted values are read liberally: raw bytes up
// to the next unquoted separator, rather than restricted to the strict
// token grammar, since Set-Cookie attribute values like
// `Expires=Wed, 09 Jun 2021 10:18:14 GMT` are not valid tokens. Quoted
// values still go through readQuoted and so are fully backslash-
// unescaped.
func ParseAttrList(value string, altSep byte) ([]AttrEntry, status.Status) {
	stop := ";"
	if altSep != 0 {
		stop += string(altSep)
	}
	s := scanner{s: value}
	var entries []AttrEntry
	for {
		s.skipOWS()
		if s.atEnd() {
			break
		}
		name, ok := s.readToken()
		if !ok {
			return nil, status.BADATTR
		}
		s.skipOWS()
		entry := AttrEntry{Name: name}
		if !s.atEnd() && s.peek() == '=' {
			s.advance()
			s.skipOWS()
			val, vst := s.readRawOrQuoted(stop)
			if vst != status.OK {
				return nil, vst
			}
			entry.Value = strings.TrimSpace(val)
			entry.HasValue = true
		}
		entries = append(entries, entry)
		s.skipOWS()
		if s.atEnd() {
			break
		}
		c := s.peek()
		if c == ';' || (altSep != 0 && c == altSep) {
			s.advance()
			continue
		}
		return nil, status.BADATTR
	}
	return entries, status.OK
}

type scanner struct {
	s   string
	pos int
}

func (s *scanner) atEnd() bool { return s.pos >= len(s.s) }
func (s *scanner) peek() byte  { return s.s[s.pos] }
func (s *scanner) advance()    { s.pos++ }

func (s *scanner) skipOWS() {
	for !s.atEnd() && ascii.IsSpace(s.peek()) {
		s.advance()
	}
}

// readToken consumes 1*<VCHAR except separators>. It returns ok=false
// if zero token bytes were consumed.
func (s *scanner) readToken() (string, bool) {
	start := s.pos
	for !s.atEnd() && ascii.IsTokenByte(s.peek()) {
		s.advance()
	}
	if s.pos == start {
		return "", false
	}
	return s.s[start:s.pos], true
}

// readQuoted consumes a DQUOTE-delimited quoted string, unescaping
// backslash sequences. The closing DQUOTE must be present or BADSEQ is
// returned.
func (s *scanner) readQuoted() (string, status.Status) {
	if s.atEnd() || s.peek() != '"' {
		return "", status.BADSEQ
	}
	s.advance()
	var b strings.Builder
	for {
		if s.atEnd() {
			return "", status.BADSEQ
		}
		c := s.peek()
		if c == '"' {
			s.advance()
			return b.String(), status.OK
		}
		if c == '\\' {
			s.advance()
			if s.atEnd() {
				return "", status.BADSEQ
			}
			b.WriteByte(s.peek())
			s.advance()
			continue
		}
		b.WriteByte(c)
		s.advance()
	}
}

// readRawOrQuoted reads a quoted string (fully unescaped via readQuoted)
// or, for an unquoted value, every byte up to (but not including) the
// first byte in stopAt, with no grammar restriction on the bytes
// themselves. Used where the value grammar is liberal rather than the
// strict `token` class.
func (s *scanner) readRawOrQuoted(stopAt string) (string, status.Status) {
	if !s.atEnd() && s.peek() == '"' {
		return s.readQuoted()
	}
	start := s.pos
	for !s.atEnd() && !strings.ContainsRune(stopAt, rune(s.peek())) {
		s.advance()
	}
	return s.s[start:s.pos], status.OK
}

// readTokenOrQuoted reads either a quoted string or a bare token,
// dispatching on the leading byte.
func (s *scanner) readTokenOrQuoted() (string, status.Status) {
	s.skipOWS()
	if !s.atEnd() && s.peek() == '"' {
		return s.readQuoted()
	}
	tok, ok := s.readToken()
	if !ok {
		if s.atEnd() {
			return "", status.NOTOKEN
		}
		return "", status.BADCHAR
	}
	return tok, status.OK
}
