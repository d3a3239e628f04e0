// Package pipeline runs script fragments through fetch, transform and
// execution in document order.
//
// A Host holds the collaborators and configuration shared by every run.
// Each run gets its own Run context carrying the state that would
// otherwise be process-wide: the inline label counter, the source set, the
// diagnostics bag and the execution scope.
package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"jsxhost/internal/diag"
	"jsxhost/internal/diagfmt"
	"jsxhost/internal/discover"
	"jsxhost/internal/fetch"
	"jsxhost/internal/jsvm"
	"jsxhost/internal/script"
	"jsxhost/internal/sequence"
	"jsxhost/internal/source"
	"jsxhost/internal/trace"
	"jsxhost/internal/transform"
)

// AdvisoryText is the notice emitted the first time a Host runs a document.
const AdvisoryText = "in-document JSX transformation is meant for development; precompile scripts for production use"

// DefaultJobs bounds concurrent fetches when Config.Jobs is not positive.
const DefaultJobs = 8

// Config holds the knobs of a Host.
type Config struct {
	Transform transform.Options
	Discover  discover.Options
	Policy    sequence.Policy
	// Jobs bounds concurrent fetches.
	Jobs int
	// Advisory enables the one-time development notice.
	Advisory bool
	// MaxDiagnostics caps the per-run diagnostics bag.
	MaxDiagnostics int
}

func DefaultConfig() Config {
	return Config{
		Discover:       discover.Options{Types: []string{script.DefaultType}, Mode: script.TransformPragma},
		Policy:         sequence.FailFast,
		Jobs:           DefaultJobs,
		Advisory:       true,
		MaxDiagnostics: 200,
	}
}

// Host wires the transform engine, the fetcher and the evaluation
// capability together. A Host may serve several runs, one at a time or
// concurrently; each run owns its scope.
type Host struct {
	Engine  transform.Engine
	Fetcher fetch.Fetcher
	// NewScope creates the execution scope of a run. Nil means a goja
	// runtime printing console output to Console.
	NewScope func() jsvm.Scope
	Console  io.Writer
	Config   Config
	Tracer   trace.Tracer
	Sink     ProgressSink

	advisory sync.Once
}

func NewHost(engine transform.Engine, fetcher fetch.Fetcher, cfg Config) *Host {
	return &Host{Engine: engine, Fetcher: fetcher, Config: cfg}
}

// Transform runs the engine on src unconditionally. Syntax errors come
// back as *transform.SourceError labeled with opts.Sourcefile, or with the
// inline label when it is empty.
func (h *Host) Transform(src string, opts transform.Options) (transform.Result, error) {
	label := opts.Sourcefile
	if label == "" {
		label = diagfmt.InlineLabel
	}
	adapter := transform.NewAdapter(h.Engine, opts)
	return adapter.Apply(src, label, true)
}

// Fetch loads url and returns its text and the URL it was finally read
// from. Any status other than 0 or 200 is a *fetch.Error.
func (h *Host) Fetch(ctx context.Context, url string) (text, finalURL string, err error) {
	if h.Fetcher == nil {
		return "", "", &fetch.Error{URL: url, Err: errors.New("no fetcher configured")}
	}
	resp, err := h.Fetcher.Fetch(ctx, url)
	if err == nil && !fetch.StatusOK(resp.Status) {
		err = &fetch.Error{URL: url, Status: resp.Status}
	}
	if err != nil {
		var fe *fetch.Error
		if !errors.As(err, &fe) {
			err = &fetch.Error{URL: url, Err: err}
		}
		Logger().Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return "", "", err
	}
	finalURL = resp.URL
	if finalURL == "" {
		finalURL = url
	}
	return resp.Text, finalURL, nil
}

// NewRun creates a fresh run context.
func (h *Host) NewRun() *Run {
	max := h.Config.MaxDiagnostics
	if max <= 0 {
		max = DefaultConfig().MaxDiagnostics
	}
	return newRun(h, diag.NewBag(max))
}

func (h *Host) tracer() trace.Tracer {
	if h.Tracer == nil {
		return trace.Nop
	}
	return h.Tracer
}

func (h *Host) sink() ProgressSink {
	if h.Sink == nil {
		return nopSink{}
	}
	return h.Sink
}

func (h *Host) jobs() int {
	if h.Config.Jobs <= 0 {
		return DefaultJobs
	}
	return h.Config.Jobs
}

func (h *Host) scope() jsvm.Scope {
	if h.NewScope != nil {
		return h.NewScope()
	}
	return jsvm.NewGoja(h.Console)
}

// advise emits the development notice into bag the first time it is
// called on h.
func (h *Host) advise(bag *diag.Bag) {
	if !h.Config.Advisory {
		return
	}
	h.advisory.Do(func() {
		Logger().Warn(AdvisoryText)
		diag.ReportWarning(diag.BagReporter{Bag: bag}, diag.RunAdvisory, source.NoSpan, AdvisoryText).Emit()
	})
}
