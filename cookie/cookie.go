// Package cookie implements the RFC 2109 / Netscape cookie parser and
// serializer (C6): parsing `Cookie:` and `Set-Cookie:` header values into
// Cookie records, and rendering a Cookie record back to wire form. Ported
// from the teacher's net/cookie/cookie.go, generalized to the version-0
// (Netscape) / version-1 (RFC 2109) distinction spec section 4.5 and 3
// require, including the `$Path`/`$Domain`/`$Port`/`$Version` reserved
// attributes of a multi-cookie `Cookie:` header.
package cookie

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/idna"

	"github.com/curol/reqdata/header"
	"github.com/curol/reqdata/status"
)

// Cookie is a parsed cookie record, per spec section 3.
type Cookie struct {
	Name       string
	Value      string
	Version    uint8 // 0 = Netscape, 1 = RFC 2109
	Path       string
	Domain     string // stored punycode-normalized; String() renders Unicode back
	Port       string
	Comment    string
	CommentURL string
	Expires    *time.Time
	MaxAge     *int
	Secure     bool
	HttpOnly   bool
}

func normalizeDomainToASCII(d string) string {
	if d == "" || isASCII(d) {
		return d
	}
	a, err := idna.ToASCII(d)
	if err != nil {
		return d
	}
	return a
}

func domainToDisplay(d string) string {
	if d == "" || !strings.Contains(d, "xn--") {
		return d
	}
	u, err := idna.ToUnicode(d)
	if err != nil {
		return d
	}
	return u
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// ParseCookieHeader parses a `Cookie:` header value into zero or more
// Cookie records, tokenized with the shared header-value scanner
// (header.ParseAttrList). Reserved RFC 2109 attributes $Path, $Domain,
// and $Port attach to the most recently parsed non-reserved cookie, and
// any of them appearing before a cookie is BADHEADER. $Version is
// special: per RFC 2109 it may precede every cookie it governs, so one
// seen before any cookie becomes the default version applied to every
// cookie parsed afterward, rather than an error.
func ParseCookieHeader(value string) ([]*Cookie, status.Status) {
	if strings.TrimSpace(value) == "" {
		return nil, status.BADHEADER
	}
	entries, st := header.ParseAttrList(value, ',')
	if st != status.OK {
		return nil, status.BADHEADER
	}
	var cookies []*Cookie
	var pendingVersion *uint8
	for _, e := range entries {
		if strings.HasPrefix(e.Name, "$") {
			if strings.EqualFold(e.Name, "$version") {
				if v, err := strconv.Atoi(e.Value); err == nil {
					ver := uint8(v)
					pendingVersion = &ver
					if len(cookies) > 0 {
						cookies[len(cookies)-1].Version = ver
					}
				}
				continue
			}
			if len(cookies) == 0 {
				return nil, status.BADHEADER
			}
			applyReserved(cookies[len(cookies)-1], e.Name, e.Value)
			continue
		}
		if !e.HasValue {
			return nil, status.BADHEADER
		}
		c := &Cookie{Name: e.Name, Value: e.Value}
		if pendingVersion != nil {
			c.Version = *pendingVersion
		}
		cookies = append(cookies, c)
	}
	return cookies, status.OK
}

func applyReserved(c *Cookie, name, val string) {
	switch strings.ToLower(name) {
	case "$path":
		c.Path = val
	case "$domain":
		c.Domain = normalizeDomainToASCII(val)
	case "$port":
		c.Port = val
	}
}

// ParseSetCookie parses a single `Set-Cookie:` header value into a
// Cookie record, tokenized with the shared header-value scanner
// (header.ParseAttrList, with no alternate comma separator so a raw
// comma inside an unquoted Expires date survives intact). Unlike the
// `Cookie:` header, attributes here may be bare flags (Secure,
// HttpOnly) with no value.
func ParseSetCookie(value string) (*Cookie, status.Status) {
	entries, st := header.ParseAttrList(value, 0)
	if st != status.OK || len(entries) == 0 || !entries[0].HasValue {
		return nil, status.BADHEADER
	}
	c := &Cookie{Name: entries[0].Name, Value: entries[0].Value}
	for _, e := range entries[1:] {
		switch strings.ToLower(e.Name) {
		case "path":
			c.Path = e.Value
		case "domain":
			c.Domain = normalizeDomainToASCII(e.Value)
		case "port":
			c.Port = e.Value
		case "comment":
			c.Comment = e.Value
		case "commenturl":
			c.CommentURL = e.Value
		case "version":
			if v, err := strconv.Atoi(e.Value); err == nil {
				c.Version = uint8(v)
			}
		case "max-age":
			if v, err := strconv.Atoi(e.Value); err == nil {
				c.MaxAge = &v
			}
		case "expires":
			if t, err := time.Parse(time.RFC1123, e.Value); err == nil {
				c.Expires = &t
			}
		case "secure":
			if !e.HasValue {
				c.Secure = true
			}
		case "httponly":
			if !e.HasValue {
				c.HttpOnly = true
			}
		}
	}
	return c, status.OK
}

// String renders the cookie per spec section 4.5: name=value followed
// by attributes in a fixed order (Version, path, domain, port, comment,
// commentURL, max-age/expires, secure, HttpOnly). Version-0 cookies must
// not emit a Version attribute; version>=1 cookies must. max-age is
// preferred over expires when version>=1.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	if c.Version >= 1 {
		b.WriteString("; Version=")
		b.WriteString(strconv.Itoa(int(c.Version)))
	}
	if c.Path != "" {
		b.WriteString("; path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; domain=")
		b.WriteString(domainToDisplay(c.Domain))
	}
	if c.Port != "" {
		b.WriteString("; port=\"")
		b.WriteString(c.Port)
		b.WriteByte('"')
	}
	if c.Comment != "" {
		b.WriteString("; comment=")
		b.WriteString(c.Comment)
	}
	if c.CommentURL != "" {
		b.WriteString("; commentURL=")
		b.WriteString(c.CommentURL)
	}
	if c.Version >= 1 && c.MaxAge != nil {
		b.WriteString("; max-age=")
		b.WriteString(strconv.Itoa(*c.MaxAge))
	} else if c.Expires != nil {
		b.WriteString("; expires=")
		b.WriteString(c.Expires.Format(time.RFC1123))
	}
	if c.Secure {
		b.WriteString("; secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}
