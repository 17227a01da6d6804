// Package reqdata is the module façade (C10): it owns the environment
// handle, the parsed query-string table, the parsed body table, and the
// lazily-driven body parser, per spec section 4.9.
package reqdata

import (
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/curol/reqdata/cookie"
	"github.com/curol/reqdata/multipart"
	"github.com/curol/reqdata/param"
	"github.com/curol/reqdata/parser"
	"github.com/curol/reqdata/queue"
	"github.com/curol/reqdata/reqconfig"
	"github.com/curol/reqdata/status"
	"github.com/curol/reqdata/urlencoded"
)

// Config is the spec section 6 configuration surface. Re-exported here
// so callers only need to import the root package for the common case.
type Config = reqconfig.Config

// DefaultConfig returns the spec section 6 defaults.
func DefaultConfig() *Config { return reqconfig.DefaultConfig() }

// Logger receives optional diagnostic output from the façade: a Warn
// entry when the body parser enters an error state and one when the body
// reader fails. Spool promotions are not logged, and the parser packages
// do not log. It is never required for correctness: the default
// is a no-op logger, matching the teacher's stdlib-log-as-an-optional-
// field idiom generalized to structured logging for a library meant to
// sit on a hot per-request path.
var Logger = zap.NewNop()

var (
	// ErrNoParser is the error form of the condition where the
	// Content-Type did not select a supported parser. Request's body
	// operations do not return it; they report status.NOPARSER instead.
	ErrNoParser = errors.New("reqdata: no parser for content type")
)

// Request is the per-request façade. One Request is created per
// incoming request and is not safe for concurrent use, matching the
// single-threaded-cooperative model of spec section 5.
type Request struct {
	cfg *Config

	queryRaw    string
	queryTable  *param.Table
	queryParsed bool

	body       parser.Parser
	bodyTable  *param.Table
	bodyStatus status.Status
	bodyQueue  *queue.Queue
	bodyReader io.Reader
	bodyEOF    bool
	feedCtx    *parser.FeedContext

	cookieHeaders []string
	cookies       []*cookie.Cookie
	cookiesParsed bool
	cookieStatus  status.Status
}

// New constructs a Request façade. contentType and queryString are the
// request's Content-Type header and raw query string; body is the
// source of request-body bytes, read lazily and in cfg.ReadBlockSize
// chunks. cookieHeaders holds every `Cookie:` header line the
// environment adapter observed (normally zero or one).
func New(cfg *Config, contentType, queryString string, body io.Reader, cookieHeaders []string) *Request {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	r := &Request{
		cfg:           cfg,
		queryRaw:      queryString,
		bodyReader:    body,
		bodyTable:     param.NewTable(),
		cookieHeaders: cookieHeaders,
		feedCtx:       &parser.FeedContext{Config: cfg},
	}
	r.selectBodyParser(contentType)
	return r
}

// AddUploadHook registers an upload-chunk hook, invoked for every chunk
// of every upload part across the request's body parse. A no-op if the
// Content-Type never selected a body parser (e.g. NOPARSER).
func (r *Request) AddUploadHook(name string, cb parser.HookFunc, data any) {
	if r.body == nil {
		return
	}
	r.body.AddHook(name, cb, data)
}

func (r *Request) selectBodyParser(contentType string) {
	// status.OK is the zero value and is terminal, so a selected parser
	// starts out INCOMPLETE until pump drives it.
	r.bodyStatus = status.INCOMPLETE
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		r.body = urlencoded.New()
	case strings.HasPrefix(ct, "multipart/form-data"), strings.HasPrefix(ct, "multipart/"):
		mp, st := multipart.NewFromContentType(contentType)
		if st != status.OK {
			r.bodyStatus = st
			return
		}
		r.body = mp
	default:
		r.bodyStatus = status.NOPARSER
	}
}

// QueryParams parses the query string on first access (eagerly and
// synchronously, since it is always fully available) and caches the
// result. Per spec section 5's ordering rule, this always happens
// before any body parsing for the same request.
func (r *Request) QueryParams() *param.Table {
	if r.queryParsed {
		return r.queryTable
	}
	r.queryTable = param.NewTable()
	p := urlencoded.New()
	q := queue.New()
	q.Append([]byte(r.queryRaw))
	p.Feed(q, r.queryTable, r.feedCtx)
	p.Close(r.queryTable, r.feedCtx)
	q.Release()
	r.queryParsed = true
	return r.queryTable
}

// Body forces a full body parse (driven by any caller requesting the
// whole body, per spec section 4.9(a)) and returns the resulting table.
func (r *Request) Body() (*param.Table, status.Status) {
	r.pump("")
	return r.bodyTable, r.bodyStatus
}

// Lookup feeds the body parser in chunks until name appears in the
// query table or the body table, or the body parser terminates,
// matching spec section 4.9(b). It never re-parses once the body
// parser has already reached a terminal status.
func (r *Request) Lookup(name string) (string, bool, status.Status) {
	if v, ok := param.FirstValue(r.QueryParams(), name); ok {
		return v, true, status.OK
	}
	r.pump(name)
	if v, ok := param.FirstValue(r.bodyTable, name); ok {
		return v, true, status.OK
	}
	if r.bodyStatus.Failed() {
		return "", false, r.bodyStatus
	}
	return "", false, status.OK
}

// pump drives the body parser. If wantName is non-empty, it stops as
// soon as that name appears in r.bodyTable; an empty wantName drives to
// full completion.
func (r *Request) pump(wantName string) {
	r.QueryParams()
	if r.body == nil {
		return // ErrNoParser case: r.bodyStatus already set (e.g. NOPARSER)
	}
	if r.bodyStatus.Terminal() {
		return
	}
	if r.bodyQueue == nil {
		r.bodyQueue = queue.New()
	}
	block := int(r.cfg.ReadBlockSize)
	if block <= 0 {
		block = 64 << 10
	}
	buf := make([]byte, block)
	for {
		if wantName != "" {
			if _, ok := param.FirstValue(r.bodyTable, wantName); ok {
				return
			}
		}
		st := r.body.Feed(r.bodyQueue, r.bodyTable, r.feedCtx)
		if st.Terminal() {
			r.bodyStatus = st
			if st.Failed() {
				Logger.Warn("reqdata: body parser entered terminal error state",
					zap.String("status", st.String()))
			}
			return
		}
		// st is INCOMPLETE or NODATA: read more, unless already at EOF.
		if r.bodyEOF {
			r.bodyStatus = r.body.Close(r.bodyTable, r.feedCtx)
			return
		}
		n, err := r.bodyReader.Read(buf)
		if n > 0 {
			r.bodyQueue.Append(buf[:n])
		}
		if err != nil {
			r.bodyEOF = true
			if err != io.EOF {
				Logger.Warn("reqdata: body reader error", zap.Error(err))
			}
		}
	}
}

// Params returns the overlay view "args ∪ body": a freshly computed
// table whose entries are the query table's entries followed by the
// (fully parsed) body table's entries, per spec section 4.2's
// merge_overlay. Mutating the returned table never affects either
// source table.
func (r *Request) Params() *param.Table {
	r.pump("")
	return r.QueryParams().MergeOverlay(r.bodyTable)
}

// Cookies parses every registered `Cookie:` header line on first access
// and caches the combined result.
func (r *Request) Cookies() ([]*cookie.Cookie, status.Status) {
	if r.cookiesParsed {
		return r.cookies, r.cookieStatus
	}
	var all []*cookie.Cookie
	var last status.Status = status.OK
	for _, h := range r.cookieHeaders {
		cs, st := cookie.ParseCookieHeader(h)
		if st != status.OK {
			last = st
			continue
		}
		all = append(all, cs...)
	}
	r.cookies = all
	r.cookieStatus = last
	r.cookiesParsed = true
	return r.cookies, r.cookieStatus
}

// Decode decodes the first-value view of the overlay params table into
// dst via mapstructure, a convenience for handlers that want a typed
// struct instead of repeated Lookup calls.
func (r *Request) Decode(dst any) error {
	flat := make(map[string]string)
	for _, e := range r.Params().Iter() {
		if _, exists := flat[e.Name]; !exists {
			flat[e.Name] = e.Value.Value
		}
	}
	return decodeMap(flat, dst)
}
