package reqdata

import (
	"strings"
	"testing"

	"github.com/curol/reqdata/param"
	"github.com/curol/reqdata/status"
)

func TestQueryParamsEagerParse(t *testing.T) {
	r := New(DefaultConfig(), "", "a=1&b=2", strings.NewReader(""), nil)
	qp := r.QueryParams()
	if v, ok := qp.First("a"); !ok || v.Value != "1" {
		t.Errorf("a = %+v, ok=%v", v, ok)
	}
}

func TestBodyURLEncoded(t *testing.T) {
	body := "x=10&y=20"
	r := New(DefaultConfig(), "application/x-www-form-urlencoded", "", strings.NewReader(body), nil)
	tbl, st := r.Body()
	if st != 0 { // status.OK is the zero value
		t.Fatalf("status = %v, want OK", st)
	}
	if v, ok := tbl.First("x"); !ok || v.Value != "10" {
		t.Errorf("x = %+v, ok=%v", v, ok)
	}
}

func TestParamsOverlayArgsBeforeBody(t *testing.T) {
	body := "a=body-value"
	r := New(DefaultConfig(), "application/x-www-form-urlencoded", "a=query-value", strings.NewReader(body), nil)
	params := r.Params()
	got := params.All("a")
	if len(got) != 2 || got[0].Value != "query-value" || got[1].Value != "body-value" {
		t.Fatalf("All(a) = %+v, want [query-value body-value]", got)
	}
	if v, ok := params.First("a"); !ok || v.Value != "query-value" {
		t.Errorf("First(a) = %+v, want query-value (args win over body)", v)
	}
}

func TestLookupStopsAtFirstMatch(t *testing.T) {
	body := "name=from-body"
	r := New(DefaultConfig(), "application/x-www-form-urlencoded", "name=from-query", strings.NewReader(body), nil)
	v, ok, st := r.Lookup("name")
	if !ok || st != 0 {
		t.Fatalf("Lookup = (%q, %v, %v)", v, ok, st)
	}
	if v != "from-query" {
		t.Errorf("Lookup(name) = %q, want from-query", v)
	}
}

func TestNoParserContentType(t *testing.T) {
	r := New(DefaultConfig(), "application/json", "", strings.NewReader("{}"), nil)
	_, st := r.Body()
	if st.String() != "NOPARSER" {
		t.Errorf("status = %v, want NOPARSER", st)
	}
}

func TestCookiesParsed(t *testing.T) {
	r := New(DefaultConfig(), "", "", strings.NewReader(""), []string{"a=1; b=2"})
	cs, st := r.Cookies()
	if st.String() != "OK" {
		t.Fatalf("status = %v, want OK", st)
	}
	if len(cs) != 2 || cs[0].Name != "a" || cs[1].Name != "b" {
		t.Errorf("cookies = %+v", cs)
	}
}

func TestAddUploadHookFiresThroughFacade(t *testing.T) {
	boundary := "AaB03x"
	var b strings.Builder
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"file1\"; filename=\"a.txt\"\r\n\r\n")
	b.WriteString("hello")
	b.WriteString("\r\n--" + boundary + "--\r\n")

	r := New(DefaultConfig(), `multipart/form-data; boundary="`+boundary+`"`, "", strings.NewReader(b.String()), nil)
	var seen []byte
	r.AddUploadHook("collect", func(data any, upload *param.UploadRef, chunk []byte) status.Status {
		seen = append(seen, chunk...)
		return status.OK
	}, nil)
	tbl, st := r.Body()
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if string(seen) != "hello" {
		t.Errorf("hook saw %q, want hello", seen)
	}
	file, ok := tbl.First("file1")
	if !ok || file.Upload == nil {
		t.Fatal("file1 upload missing")
	}
}

func TestDecodeIntoStruct(t *testing.T) {
	type target struct {
		Name string `param:"name"`
		Age  int    `param:"age"`
	}
	r := New(DefaultConfig(), "application/x-www-form-urlencoded", "name=alice", strings.NewReader("age=30"), nil)
	var out target
	if err := r.Decode(&out); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out.Name != "alice" || out.Age != 30 {
		t.Errorf("out = %+v, want {alice 30}", out)
	}
}
