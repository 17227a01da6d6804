package cookie

import (
	"testing"

	"github.com/curol/reqdata/status"
)

func TestParseCookieHeaderSimple(t *testing.T) {
	cs, st := ParseCookieHeader("a=1; b=2")
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if len(cs) != 2 {
		t.Fatalf("len = %d, want 2", len(cs))
	}
	if cs[0].Name != "a" || cs[0].Value != "1" {
		t.Errorf("cs[0] = %+v", cs[0])
	}
	if cs[1].Name != "b" || cs[1].Value != "2" {
		t.Errorf("cs[1] = %+v", cs[1])
	}
}

func TestParseCookieHeaderReservedAttrs(t *testing.T) {
	cs, st := ParseCookieHeader(`$Version=1; a=1; $Path="/x"; $Domain=example.com`)
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if len(cs) != 1 {
		t.Fatalf("len = %d, want 1", len(cs))
	}
	c := cs[0]
	if c.Version != 1 || c.Path != "/x" || c.Domain != "example.com" {
		t.Errorf("c = %+v", c)
	}
}

func TestParseCookieHeaderLeadingReservedIsBadHeader(t *testing.T) {
	_, st := ParseCookieHeader("$Path=/x; a=1")
	if st != status.BADHEADER {
		t.Errorf("status = %v, want BADHEADER", st)
	}
}

func TestParseCookieHeaderEmpty(t *testing.T) {
	_, st := ParseCookieHeader("   ")
	if st != status.BADHEADER {
		t.Errorf("status = %v, want BADHEADER", st)
	}
}

func TestParseSetCookieFull(t *testing.T) {
	c, st := ParseSetCookie("sid=abc123; Path=/; Domain=example.com; Secure; HttpOnly; Max-Age=3600")
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if c.Name != "sid" || c.Value != "abc123" {
		t.Errorf("name/value = %q/%q", c.Name, c.Value)
	}
	if c.Path != "/" || c.Domain != "example.com" {
		t.Errorf("path/domain = %q/%q", c.Path, c.Domain)
	}
	if !c.Secure || !c.HttpOnly {
		t.Errorf("secure=%v httponly=%v, want both true", c.Secure, c.HttpOnly)
	}
	if c.MaxAge == nil || *c.MaxAge != 3600 {
		t.Errorf("MaxAge = %v, want 3600", c.MaxAge)
	}
}

func TestSetCookieStringVersion0OmitsVersion(t *testing.T) {
	c := &Cookie{Name: "a", Value: "1"}
	got := c.String()
	want := "a=1"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSetCookieStringVersion1EmitsVersionAndMaxAge(t *testing.T) {
	age := 60
	c := &Cookie{Name: "a", Value: "1", Version: 1, Path: "/p", MaxAge: &age}
	got := c.String()
	want := "a=1; Version=1; path=/p; max-age=60"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDomainPunycodePreservedOnParse(t *testing.T) {
	c, st := ParseSetCookie("a=1; Domain=xn--mnchen-3ya.de")
	if st != status.OK {
		t.Fatalf("status = %v", st)
	}
	if c.Domain != "xn--mnchen-3ya.de" {
		t.Errorf("Domain = %q, want punycode preserved as-is when already ASCII", c.Domain)
	}
}

func TestCommaInExpiresNotSplit(t *testing.T) {
	c, st := ParseSetCookie(`a=1; Expires=Wed, 09 Jun 2021 10:18:14 GMT`)
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if c.Expires == nil {
		t.Fatal("Expires not parsed")
	}
}
