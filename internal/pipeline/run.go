package pipeline

import (
	"errors"
	"fmt"
	"time"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"jsxhost/internal/diag"
	"jsxhost/internal/diagfmt"
	"jsxhost/internal/jsvm"
	"jsxhost/internal/observ"
	"jsxhost/internal/script"
	"jsxhost/internal/source"
	"jsxhost/internal/sourcemap"
	"jsxhost/internal/trace"
	"jsxhost/internal/transform"
)

// Run is the context of one run: everything a run mutates lives here.
// Execute and Run evaluate on the caller's goroutine; a Run must not be
// used from several goroutines at once.
type Run struct {
	host     *Host
	labeler  diagfmt.Labeler
	files    *source.FileSet
	bag      *diag.Bag
	reporter diag.Reporter
	timer    *observ.Timer
	adapter  *transform.Adapter
	scope    jsvm.Scope
	anon     int
}

func newRun(h *Host, bag *diag.Bag) *Run {
	return &Run{
		host:     h,
		files:    source.NewFileSet(),
		bag:      bag,
		reporter: diag.BagReporter{Bag: bag},
		timer:    observ.NewTimer(),
		adapter:  transform.NewAdapter(h.Engine, h.Config.Transform),
		scope:    h.scope(),
	}
}

func (r *Run) Files() *source.FileSet { return r.files }
func (r *Run) Diagnostics() *diag.Bag { return r.bag }
func (r *Run) Timer() *observ.Timer { return r.timer }
func (r *Run) Scope() jsvm.Scope { return r.scope }
func (r *Run) Labeler() *diagfmt.Labeler { return &r.labeler }

// Execute transforms src if its docblock asks for it and evaluates the
// result in the run's scope, returning the completion value.
func (r *Run) Execute(src, label string) (any, error) {
	prep, err := r.prepare(src, label, "", r.host.Config.Discover.Mode.Requires(src), source.FileVirtual)
	if err != nil {
		return nil, err
	}
	return r.eval(prep)
}

// Run is Execute without the value: the transformed code, with its source
// map embedded, is injected for its side effects only.
func (r *Run) Run(src, label string) error {
	prep, err := r.prepare(src, label, "", r.host.Config.Discover.Mode.Requires(src), source.FileVirtual)
	if err != nil {
		return err
	}
	_, err = r.eval(prep)
	return err
}

type prepared struct {
	name string
	code string
	file source.FileID
}

// prepare labels src, records it in the file set and runs the adapter.
// Inline fragments only consume an inline label when they are actually
// transformed; untransformed ones are evaluated under fallback.
func (r *Run) prepare(src, origin, fallback string, requires bool, flags source.FileFlags) (prepared, error) {
	name := origin
	switch {
	case requires:
		name = r.labeler.Label(origin)
	case origin == "" && fallback != "":
		name = fallback
	case origin == "":
		r.anon++
		name = fmt.Sprintf("<anonymous %d>", r.anon)
	}
	id := r.files.Add(name, []byte(src), flags)
	prep := prepared{name: name, file: id}

	start := time.Now()
	sp := trace.Begin(r.host.tracer(), trace.ScopeScript, "transform", 0).WithExtra("label", name)
	res, err := r.adapter.Apply(src, name, requires)
	elapsed := sp.End(name)
	if requires {
		r.timer.Add(string(StageTransform), time.Since(start))
	}
	if err != nil {
		r.reportTransform(err, id, name)
		return prep, err
	}

	prep.code = res.Code
	if res.Map != nil {
		code, err := sourcemap.Embed(res.Code, res.Map, name, src)
		if err != nil {
			err = fmt.Errorf("embed source map for %s: %w", name, err)
			diag.ReportError(r.reporter, diag.TrnEngineFailed, source.NoSpan, err.Error()).WithLabel(name).Emit()
			return prep, err
		}
		prep.code = code
	}
	if requires {
		Logger().Debug("transformed", zap.String("label", name), zap.Duration("elapsed", elapsed))
	}
	return prep, nil
}

func (r *Run) eval(prep prepared) (any, error) {
	start := time.Now()
	sp := trace.Begin(r.host.tracer(), trace.ScopeScript, "execute", 0).WithExtra("label", prep.name)
	v, err := r.scope.Eval(prep.name, prep.code)
	sp.End(prep.name)
	r.timer.Add(string(StageExecute), time.Since(start))
	if err != nil {
		r.reportExec(err, prep.name)
		return nil, err
	}
	return v, nil
}

func (r *Run) reportTransform(err error, id source.FileID, label string) {
	var se *transform.SourceError
	if !errors.As(err, &se) {
		diag.ReportError(r.reporter, diag.TrnEngineFailed, source.NoSpan, err.Error()).WithLabel(label).Emit()
		return
	}
	span := source.NoSpan
	line, lerr := safecast.Conv[uint32](se.Line)
	col, cerr := safecast.Conv[uint32](se.Column)
	if f := r.files.Get(id); f != nil && lerr == nil && cerr == nil {
		span = f.SpanAt(line, col)
	}
	diag.ReportError(r.reporter, diag.TrnSyntaxError, span, se.Message).WithLabel(label).Emit()
}

func (r *Run) reportExec(err error, label string) {
	code := diag.ExeThrown
	if errors.Is(err, jsvm.ErrEvalUnavailable) {
		code = diag.ExeUnavailable
	}
	msg := err.Error()
	var ee *jsvm.ExecError
	if errors.As(err, &ee) {
		msg = ee.Message
	}
	diag.ReportError(r.reporter, code, source.NoSpan, msg).WithLabel(label).Emit()
}

// requiresFor resolves the descriptor's mode against fetched content.
func requiresFor(d script.Descriptor, content string) bool {
	return d.RequiresTransform.Requires(content)
}
