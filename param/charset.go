package param

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset enumerates the byte interpretations a Param's value may carry,
// per the data model in spec section 3.
type Charset int

const (
	CharsetUnknown Charset = iota
	CharsetASCII
	CharsetUTF8
	CharsetLatin1
	CharsetCP1252
)

func (c Charset) String() string {
	switch c {
	case CharsetASCII:
		return "ascii"
	case CharsetUTF8:
		return "utf8"
	case CharsetLatin1:
		return "latin1"
	case CharsetCP1252:
		return "cp1252"
	default:
		return "unknown"
	}
}

// isASCII reports whether every byte of b is in the 7-bit range.
func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// decodesCleanly reports whether b can be fully decoded by dec without
// error, i.e. it is well-formed in the charset dec represents.
func decodesCleanly(b []byte, dec transform.Transformer) bool {
	_, _, err := transform.Bytes(dec, b)
	return err == nil
}

// DetectCharset infers the most specific charset that accepts b without
// transformation error, preferring the narrowest encoding: ascii, then
// utf8, then cp1252, then latin1 (which accepts any byte and so is the
// last resort), finally unknown if nothing decodes cleanly.
func DetectCharset(b []byte) Charset {
	if isASCII(b) {
		return CharsetASCII
	}
	if decodesCleanly(b, unicode.UTF8.NewDecoder()) {
		return CharsetUTF8
	}
	if decodesCleanly(b, charmap.Windows1252.NewDecoder()) {
		return CharsetCP1252
	}
	if decodesCleanly(b, charmap.ISO8859_1.NewDecoder()) {
		return CharsetLatin1
	}
	return CharsetUnknown
}

// Validate reports whether b is well-formed under the claimed charset.
// A Param whose source bytes fail this check should be marked Tainted.
func Validate(b []byte, claimed Charset) bool {
	switch claimed {
	case CharsetASCII:
		return isASCII(b)
	case CharsetUTF8:
		return decodesCleanly(b, unicode.UTF8.NewDecoder())
	case CharsetCP1252:
		return decodesCleanly(b, charmap.Windows1252.NewDecoder())
	case CharsetLatin1:
		return decodesCleanly(b, charmap.ISO8859_1.NewDecoder())
	default:
		return false
	}
}
