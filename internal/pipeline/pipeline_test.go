package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"jsxhost/internal/diag"
	"jsxhost/internal/fetch"
	"jsxhost/internal/jsvm"
	"jsxhost/internal/script"
	"jsxhost/internal/sequence"
	"jsxhost/internal/sourcemap"
	"jsxhost/internal/testkit"
	"jsxhost/internal/transform"
)

// recordingScope remembers what was evaluated, in order. Code containing
// "throw" fails.
type recordingScope struct {
	mu    sync.Mutex
	names []string
	codes []string
}

func (s *recordingScope) Eval(name, code string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(code, "throw") {
		return nil, &jsvm.ExecError{Label: name, Message: "boom"}
	}
	s.names = append(s.names, name)
	s.codes = append(s.codes, code)
	return len(s.codes), nil
}

// upperEngine "transforms" by upper-casing; sources containing "<<" are
// rejected at the first '<'.
var upperEngine = transform.EngineFunc(func(src string, opts transform.Options) (transform.Result, error) {
	if i := strings.Index(src, "<<"); i >= 0 {
		line := strings.Count(src[:i], "\n") + 1
		col := i - strings.LastIndex(src[:i], "\n")
		return transform.Result{}, &transform.SyntaxError{Message: `Unexpected "<"`, Line: line, Column: col}
	}
	return transform.Result{Code: strings.ToUpper(src)}, nil
})

func newTestHost(engine transform.Engine, fetcher fetch.Fetcher, scope jsvm.Scope) *Host {
	cfg := DefaultConfig()
	cfg.Advisory = false
	h := NewHost(engine, fetcher, cfg)
	h.NewScope = func() jsvm.Scope { return scope }
	return h
}

func external(pos int, u string) script.Descriptor {
	return script.Descriptor{Position: pos, Origin: u, Type: script.DefaultType}
}

func inline(pos int, content string) script.Descriptor {
	return script.Descriptor{Position: pos, Type: script.DefaultType, Content: content, Inline: true}
}

// gatedFetcher holds every fetch until the test releases its URL.
type gatedFetcher struct {
	gates map[string]chan struct{}
}

func newGatedFetcher(urls []string) *gatedFetcher {
	g := &gatedFetcher{gates: make(map[string]chan struct{}, len(urls))}
	for _, u := range urls {
		g.gates[u] = make(chan struct{})
	}
	return g
}

func (g *gatedFetcher) Fetch(ctx context.Context, u string) (fetch.Response, error) {
	select {
	case <-g.gates[u]:
	case <-ctx.Done():
		return fetch.Response{}, ctx.Err()
	}
	return fetch.Response{Text: "run(" + u + ")", URL: u, Status: http.StatusOK}, nil
}

func TestExecutionOrderIndependentOfCompletionOrder(t *testing.T) {
	const n = 6
	for _, perm := range testkit.Permutations(n, 20, 7) {
		urls := make([]string, n)
		descs := make([]script.Descriptor, n)
		for i := range descs {
			urls[i] = fmt.Sprintf("https://example.test/%d.js", i)
			descs[i] = external(i, urls[i])
		}
		fetcher := newGatedFetcher(urls)
		scope := &recordingScope{}
		h := newTestHost(upperEngine, fetcher, scope)
		h.Config.Jobs = n

		go func() {
			for _, i := range perm {
				close(fetcher.gates[urls[i]])
			}
		}()
		rep, err := h.NewRun().RunScripts(context.Background(), descs)
		if err != nil {
			t.Fatalf("perm %v: %v", perm, err)
		}
		if err := testkit.CheckExecutionOrder(rep.Executed, n, nil); err != nil {
			t.Fatalf("perm %v: %v", perm, err)
		}
		if len(rep.Executed) != n {
			t.Fatalf("perm %v: executed %v", perm, rep.Executed)
		}
		for i, name := range scope.names {
			if name != urls[i] {
				t.Fatalf("perm %v: eval %d ran %s", perm, i, name)
			}
		}
	}
}

func TestInlineLabelsAssignedOnTransform(t *testing.T) {
	scope := &recordingScope{}
	h := newTestHost(upperEngine, nil, scope)
	descs := []script.Descriptor{
		inline(0, "/** @jsx React.DOM */ a"),
		inline(1, "plain()"),
		inline(2, "/** @jsx React.DOM */ b"),
	}
	rep, err := h.NewRun().RunScripts(context.Background(), descs)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Inline script", "inline#1", "Inline script (2)"}
	for i, w := range want {
		if rep.Labels[i] != w || scope.names[i] != w {
			t.Errorf("script %d: label %q, evaluated as %q, want %q", i, rep.Labels[i], scope.names[i], w)
		}
	}
	if scope.codes[1] != "plain()" {
		t.Errorf("untransformed content changed: %q", scope.codes[1])
	}
	if strings.Contains(scope.codes[1], sourcemap.Prefix) {
		t.Error("untransformed content must not carry a source map")
	}
}

func TestFailFastAbortIsStickyAndSkipsLater(t *testing.T) {
	scope := &recordingScope{}
	h := newTestHost(upperEngine, nil, scope)
	descs := []script.Descriptor{
		inline(0, "one()"),
		inline(1, "throw oops"),
		inline(2, "three()"),
	}
	run := h.NewRun()
	rep, err := run.RunScripts(context.Background(), descs)

	var abort *sequence.AbortError
	if !errors.As(err, &abort) || abort.Position != 1 {
		t.Fatalf("expected abort at 1, got %v", err)
	}
	var ee *jsvm.ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("execution error should propagate as is, got %T", abort.Err)
	}
	if fmt.Sprint(rep.Executed) != "[0]" || fmt.Sprint(rep.Failed) != "[1]" || fmt.Sprint(rep.Skipped) != "[2]" {
		t.Fatalf("unexpected report executed=%v failed=%v skipped=%v", rep.Executed, rep.Failed, rep.Skipped)
	}
	if len(scope.names) != 1 {
		t.Fatalf("only the first script may run, got %v", scope.names)
	}
	codes := diagCodes(run.Diagnostics())
	if !codes[diag.ExeThrown] || !codes[diag.RunAborted] {
		t.Errorf("missing diagnostics, got %v", codes)
	}
}

func TestIsolateContinuesAfterFailure(t *testing.T) {
	scope := &recordingScope{}
	h := newTestHost(upperEngine, nil, scope)
	h.Config.Policy = sequence.Isolate
	descs := []script.Descriptor{
		inline(0, "one()"),
		inline(1, "throw oops"),
		inline(2, "three()"),
	}
	rep, err := h.NewRun().RunScripts(context.Background(), descs)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(rep.Executed) != "[0 2]" || fmt.Sprint(rep.Failed) != "[1]" || len(rep.Skipped) != 0 {
		t.Fatalf("unexpected report executed=%v failed=%v skipped=%v", rep.Executed, rep.Failed, rep.Skipped)
	}
	if err := testkit.CheckExecutionOrder(rep.Executed, 3, map[int]bool{1: true}); err != nil {
		t.Fatal(err)
	}
}

func TestTransformFailureIsEnriched(t *testing.T) {
	scope := &recordingScope{}
	h := newTestHost(upperEngine, nil, scope)
	run := h.NewRun()
	src := "/** @jsx React.DOM */\nvar a = <<b/>;"
	err := run.Run(src, "")

	var se *transform.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *transform.SourceError, got %T %v", err, err)
	}
	want := "Unexpected \"<\"\n    at Inline script:2:9\nvar a = <<b/>;\n        ^"
	if err.Error() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", err.Error(), want)
	}
	items := run.Diagnostics().Items()
	if len(items) != 1 || items[0].Code != diag.TrnSyntaxError || !items[0].Primary.Valid() {
		t.Fatalf("unexpected diagnostics %+v", items)
	}
	if len(scope.names) != 0 {
		t.Fatal("nothing may execute after a transform failure")
	}
}

func TestSourceMapEmbedded(t *testing.T) {
	engine := transform.EngineFunc(func(src string, opts transform.Options) (transform.Result, error) {
		return transform.Result{
			Code: "lowered();",
			Map:  &sourcemap.Map{Version: 3, Mappings: "AAAA"},
		}, nil
	})
	scope := &recordingScope{}
	h := newTestHost(engine, nil, scope)
	src := "/** @jsx React.DOM */ <a/>"
	if err := h.NewRun().Run(src, "https://example.test/app.jsx"); err != nil {
		t.Fatal(err)
	}
	m, ok, err := sourcemap.Extract(scope.codes[0])
	if err != nil || !ok {
		t.Fatalf("expected embedded map, ok=%v err=%v", ok, err)
	}
	if fmt.Sprint(m.Sources) != "[https://example.test/app.jsx]" || len(m.SourcesContent) != 1 || m.SourceContent(0) != src {
		t.Fatalf("unexpected map %+v", m)
	}
}

func TestExecuteReturnsValue(t *testing.T) {
	h := NewHost(upperEngine, nil, DefaultConfig())
	run := h.NewRun()
	if _, err := run.Execute("var total = 40;", ""); err != nil {
		t.Fatal(err)
	}
	v, err := run.Execute("total + 2", "")
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(42) {
		t.Fatalf("expected 42, got %#v", v)
	}
}

func TestFetchStatusBoundary(t *testing.T) {
	tests := []struct {
		status int
		ok     bool
	}{
		{status: 0, ok: true},
		{status: 200, ok: true},
		{status: 204, ok: false},
		{status: 404, ok: false},
		{status: 500, ok: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			fetcher := fetch.Func(func(ctx context.Context, u string) (fetch.Response, error) {
				return fetch.Response{Text: "x", Status: tt.status}, nil
			})
			h := NewHost(nil, fetcher, DefaultConfig())
			text, final, err := h.Fetch(context.Background(), "app.js")
			if tt.ok {
				if err != nil || text != "x" || final != "app.js" {
					t.Fatalf("got %q %q %v", text, final, err)
				}
				return
			}
			var fe *fetch.Error
			if !errors.As(err, &fe) || fe.Status != tt.status || err.Error() != "could not load app.js" {
				t.Fatalf("expected *fetch.Error, got %v", err)
			}
		})
	}
}

func TestFetchFailureStopsAtItsPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.js" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "ran(%q)", r.URL.Path)
	}))
	defer srv.Close()

	scope := &recordingScope{}
	h := newTestHost(upperEngine, fetch.NewHTTP("jsxhost-test"), scope)
	descs := []script.Descriptor{
		external(0, srv.URL+"/a.js"),
		external(1, srv.URL+"/missing.js"),
		external(2, srv.URL+"/c.js"),
	}
	run := h.NewRun()
	rep, err := run.RunScripts(context.Background(), descs)

	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Status != http.StatusNotFound {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if fmt.Sprint(rep.Executed) != "[0]" {
		t.Fatalf("only the script before the failure may run, got %v", rep.Executed)
	}
	if !diagCodes(run.Diagnostics())[diag.FetLoadFailed] {
		t.Error("missing fetch diagnostic")
	}
}

func TestRunDocumentEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/js/react.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "var React = {createElement: function (tag) { return tag; }};")
	})
	mux.HandleFunc("/js/app.jsx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "/** @jsx React.createElement */\nvar tag = <section/>;")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := `<html><head><base href="/js/">
<script type="text/jsx" src="react.js"></script>
<script type="text/jsx" src="app.jsx"></script>
<script type="text/jsx">var seen = tag;</script>
<script type="text/javascript">ignored()</script>
</head></html>`

	goja := jsvm.NewGoja(nil)
	cfg := DefaultConfig()
	h := NewHost(transform.Esbuild{}, fetch.NewHTTP("jsxhost-test"), cfg)
	h.NewScope = func() jsvm.Scope { return goja }

	var mu sync.Mutex
	var events []Event
	h.Sink = SinkFunc(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	base, _ := url.Parse(srv.URL + "/index.html")
	rep, err := h.RunDocument(context.Background(), strings.NewReader(page), base)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Scripts != 3 || len(rep.Executed) != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if got := goja.Get("seen"); got != "section" {
		t.Fatalf("expected seen == section, got %#v", got)
	}
	if rep.Labels[1] != srv.URL+"/js/app.jsx" {
		t.Errorf("unexpected label %q", rep.Labels[1])
	}
	if !diagCodes(rep.Run.Diagnostics())[diag.RunAdvisory] {
		t.Error("expected the advisory notice")
	}

	mu.Lock()
	defer mu.Unlock()
	var executed int
	for _, ev := range events {
		if ev.Stage == StageExecute && ev.Status == StatusDone {
			executed++
		}
	}
	if executed != 3 {
		t.Errorf("expected 3 execute/done events, got %d", executed)
	}
}

func TestAdvisoryOncePerHost(t *testing.T) {
	h := newTestHost(upperEngine, nil, &recordingScope{})
	h.Config.Advisory = true
	first, second := h.NewRun(), h.NewRun()
	if _, err := first.RunScripts(context.Background(), []script.Descriptor{inline(0, "a()")}); err != nil {
		t.Fatal(err)
	}
	if _, err := second.RunScripts(context.Background(), []script.Descriptor{inline(0, "b()")}); err != nil {
		t.Fatal(err)
	}
	if !diagCodes(first.Diagnostics())[diag.RunAdvisory] || diagCodes(second.Diagnostics())[diag.RunAdvisory] {
		t.Fatal("advisory must be reported exactly once per host")
	}
}

func TestRunScriptsRejectsBadPositions(t *testing.T) {
	h := newTestHost(upperEngine, nil, &recordingScope{})
	_, err := h.NewRun().RunScripts(context.Background(), []script.Descriptor{inline(1, "a()")})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func diagCodes(bag *diag.Bag) map[diag.Code]bool {
	out := make(map[diag.Code]bool)
	for _, d := range bag.Items() {
		out[d.Code] = true
	}
	return out
}
