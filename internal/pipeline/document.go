package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jsxhost/internal/diag"
	"jsxhost/internal/discover"
	"jsxhost/internal/fetch"
	"jsxhost/internal/script"
	"jsxhost/internal/sequence"
	"jsxhost/internal/source"
	"jsxhost/internal/trace"
)

// Report summarises a document run. Positions refer to the discovered
// descriptors.
type Report struct {
	Scripts  int
	Executed []int
	Failed   []int
	// Skipped lists scripts that never ran because an earlier one aborted
	// the run.
	Skipped []int
	// Labels holds the name each executed or attempted script ran under.
	Labels []string
	Run    *Run
}

// RunDocument scans an HTML document and runs its scripts in a new Run.
func (h *Host) RunDocument(ctx context.Context, r io.Reader, base *url.URL) (*Report, error) {
	return h.NewRun().RunDocument(ctx, r, base)
}

// RunDocument scans an HTML document with the host's discovery options and
// runs every accepted script.
func (r *Run) RunDocument(ctx context.Context, doc io.Reader, base *url.URL) (*Report, error) {
	idx := r.timer.Begin("discover")
	descs, err := discover.Scan(doc, base, r.host.Config.Discover)
	r.timer.End(idx, fmt.Sprintf("%d scripts", len(descs)))
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	return r.RunScripts(ctx, descs)
}

// RunScripts fetches external scripts concurrently and executes all of
// them in position order on the calling goroutine.
//
// Under sequence.FailFast the first failure is returned as a
// *sequence.AbortError and later scripts are skipped. Under
// sequence.Isolate failures are recorded and the error is nil.
func (r *Run) RunScripts(ctx context.Context, descs []script.Descriptor) (*Report, error) {
	if err := script.Validate(descs); err != nil {
		return nil, err
	}
	h := r.host
	h.advise(r.bag)

	ctx = trace.WithTracer(ctx, h.tracer())
	ctx, span := trace.BeginCtx(ctx, trace.ScopeRun, "run")
	span.WithExtra("scripts", fmt.Sprint(len(descs)))
	runIdx := r.timer.Begin("run")

	loop := &runLoop{
		run:       r,
		descs:     descs,
		fetchErrs: make(map[int]error),
		labels:    make([]string, len(descs)),
	}
	seq := sequence.New(descs, loop.exec, h.Config.Policy)
	runErr := loop.drive(ctx, seq)

	rep := loop.report(seq)
	r.timer.End(runIdx, fmt.Sprintf("%d executed", len(rep.Executed)))

	var abort *sequence.AbortError
	if errors.As(runErr, &abort) {
		label := loop.labels[abort.Position]
		msg := fmt.Sprintf("run aborted at script #%d; %d later script(s) skipped", abort.Position, len(rep.Skipped))
		diag.ReportError(r.reporter, diag.RunAborted, source.NoSpan, msg).WithLabel(label).Emit()
		Logger().Warn("run aborted",
			zap.Int("position", abort.Position),
			zap.String("label", label),
			zap.Int("skipped", len(rep.Skipped)),
			zap.Error(abort.Err))
	}
	for _, pos := range rep.Skipped {
		h.sink().OnEvent(Event{Position: pos, Label: loop.labelOf(pos), Stage: StageExecute, Status: StatusSkipped})
	}
	span.End(fmt.Sprintf("executed=%d failed=%d skipped=%d", len(rep.Executed), len(rep.Failed), len(rep.Skipped)))
	return rep, runErr
}

// runLoop is the state of RunScripts owned by the run loop goroutine.
type runLoop struct {
	run       *Run
	descs     []script.Descriptor
	fetchErrs map[int]error
	labels    []string
}

func (l *runLoop) labelOf(pos int) string {
	if l.labels[pos] != "" {
		return l.labels[pos]
	}
	return l.descs[pos].Origin
}

// drive starts the fetches and feeds completions into seq until every
// slot has reported or the run stops.
func (l *runLoop) drive(ctx context.Context, seq *sequence.Sequencer) error {
	n := len(l.descs)
	completions := make(chan *fetch.Future, n)
	stop := make(chan struct{})
	launched := make(chan error, 1)

	go func() { launched <- l.launch(ctx, completions, stop) }()
	for _, d := range l.descs {
		if d.Inline {
			fetch.NewFuture(d.Position, "", completions).Complete(fetch.Response{Text: d.Content}, nil)
		}
	}

	var runErr error
	for received := 0; received < n; {
		select {
		case f := <-completions:
			received++
			if err := l.deliver(seq, f); err != nil {
				runErr = err
			}
		case <-ctx.Done():
			runErr = ctx.Err()
		}
		if runErr != nil {
			break
		}
	}
	close(stop)
	if err := <-launched; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// launch issues fetches for external scripts with at most Jobs in flight.
// It stops issuing new ones once stop is closed.
func (l *runLoop) launch(ctx context.Context, completions chan<- *fetch.Future, stop <-chan struct{}) error {
	h := l.run.host
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.jobs())
	fetcher := l.observedFetcher()
	for _, d := range l.descs {
		if d.Inline {
			continue
		}
		h.sink().OnEvent(Event{Position: d.Position, Label: d.Origin, Stage: StageFetch, Status: StatusQueued})
	}
	for _, d := range l.descs {
		if d.Inline {
			continue
		}
		select {
		case <-stop:
			return g.Wait()
		default:
		}
		f := fetch.NewFuture(d.Position, d.Origin, completions)
		g.Go(func() error {
			h.sink().OnEvent(Event{Position: f.Position, Label: f.URL, Stage: StageFetch, Status: StatusWorking})
			f.Resolve(gctx, fetcher)
			return nil
		})
	}
	return g.Wait()
}

// observedFetcher times and traces every fetch.
func (l *runLoop) observedFetcher() fetch.Fetcher {
	h := l.run.host
	return fetch.Func(func(ctx context.Context, u string) (fetch.Response, error) {
		if h.Fetcher == nil {
			return fetch.Response{}, &fetch.Error{URL: u, Err: errors.New("no fetcher configured")}
		}
		start := time.Now()
		_, sp := trace.BeginCtx(ctx, trace.ScopeStage, "fetch")
		sp.WithExtra("url", u)
		resp, err := h.Fetcher.Fetch(ctx, u)
		sp.End(fmt.Sprintf("status=%d", resp.Status))
		l.run.timer.Add(string(StageFetch), time.Since(start))
		return resp, err
	})
}

// deliver hands one completion to the sequencer. A failed fetch is
// reported right away and its slot is still delivered, so the failure
// surfaces at the script's position in the execution order.
func (l *runLoop) deliver(seq *sequence.Sequencer, f *fetch.Future) error {
	h := l.run.host
	resp, err := f.Result()
	u := resp.URL
	if u == "" {
		u = f.URL
	}
	d := l.descs[f.Position]
	if err != nil {
		var fe *fetch.Error
		if !errors.As(err, &fe) {
			err = &fetch.Error{URL: f.URL, Err: err}
		}
		l.fetchErrs[f.Position] = err
		l.run.reportFetch(err, f.URL)
		h.sink().OnEvent(Event{Position: f.Position, Label: f.URL, Stage: StageFetch, Status: StatusError, Err: err})
	} else if !d.Inline {
		h.sink().OnEvent(Event{Position: f.Position, Label: u, Stage: StageFetch, Status: StatusDone})
	}
	return seq.NotifyLoaded(f.Position, resp.Text, u)
}

// exec is the sequencer's ExecFunc. It runs on the run loop goroutine.
func (l *runLoop) exec(position int, content, u string) error {
	if err, ok := l.fetchErrs[position]; ok {
		return err
	}
	r := l.run
	h := r.host
	d := l.descs[position]
	origin := u
	flags := source.FileFetched
	if d.Inline {
		origin = ""
		flags = source.FileInline | source.FileVirtual
	}
	requires := requiresFor(d, content)
	if requires {
		h.sink().OnEvent(Event{Position: position, Label: origin, Stage: StageTransform, Status: StatusWorking})
	}

	start := time.Now()
	prep, err := r.prepare(content, origin, fmt.Sprintf("inline#%d", position), requires, flags)
	l.labels[position] = prep.name
	if err != nil {
		h.sink().OnEvent(Event{Position: position, Label: prep.name, Stage: StageTransform, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return err
	}
	if requires {
		h.sink().OnEvent(Event{Position: position, Label: prep.name, Stage: StageTransform, Status: StatusDone, Elapsed: time.Since(start)})
	}

	h.sink().OnEvent(Event{Position: position, Label: prep.name, Stage: StageExecute, Status: StatusWorking})
	start = time.Now()
	if _, err := r.eval(prep); err != nil {
		h.sink().OnEvent(Event{Position: position, Label: prep.name, Stage: StageExecute, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return err
	}
	h.sink().OnEvent(Event{Position: position, Label: prep.name, Stage: StageExecute, Status: StatusDone, Elapsed: time.Since(start)})
	return nil
}

func (l *runLoop) report(seq *sequence.Sequencer) *Report {
	rep := &Report{
		Scripts:  len(l.descs),
		Executed: seq.Order(),
		Labels:   make([]string, len(l.descs)),
		Run:      l.run,
	}
	for i := range l.descs {
		rep.Labels[i] = l.labelOf(i)
	}
	for _, f := range seq.Failures() {
		rep.Failed = append(rep.Failed, f.Position)
	}
	var abort *sequence.AbortError
	if errors.As(seq.Aborted(), &abort) {
		rep.Failed = append(rep.Failed, abort.Position)
	}
	slices.Sort(rep.Failed)
	for _, pos := range seq.Unexecuted() {
		if !slices.Contains(rep.Failed, pos) {
			rep.Skipped = append(rep.Skipped, pos)
		}
	}
	return rep
}

func (r *Run) reportFetch(err error, u string) {
	msg := err.Error()
	var fe *fetch.Error
	if errors.As(err, &fe) {
		if detail := fe.Detail(); detail != "" {
			msg += ": " + detail
		}
	}
	diag.ReportError(r.reporter, diag.FetLoadFailed, source.NoSpan, msg).WithLabel(u).Emit()
	Logger().Warn("fetch failed", zap.String("url", u), zap.Error(err))
}
