package param

import "testing"

func TestFirstAndAllValues(t *testing.T) {
	tb := NewTable()
	tb.Insert("a", New("a", "1"))
	tb.Insert("a", New("a", "2"))

	if v, ok := FirstValue(tb, "a"); !ok || v != "1" {
		t.Errorf("FirstValue = (%q, %v), want (1, true)", v, ok)
	}
	if got := AllValues(tb, "a"); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("AllValues = %v, want [1 2]", got)
	}
	if _, ok := FirstValue(tb, "missing"); ok {
		t.Error("FirstValue(missing) ok = true, want false")
	}
}

func TestNewDefaultsToASCIICharset(t *testing.T) {
	p := New("k", "v")
	if p.Charset != CharsetASCII {
		t.Errorf("Charset = %v, want ascii", p.Charset)
	}
	if p.Tainted {
		t.Error("Tainted = true, want false for a fresh Param")
	}
}
