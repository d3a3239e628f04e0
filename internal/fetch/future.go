package fetch

import (
	"context"
	"sync"
)

// Future is the pending result of one fetch. It completes exactly once;
// on completion Done is closed and, if a sink was given, the future is sent
// to it. The sink must have room for every future that reports to it.
type Future struct {
	Position int
	URL      string

	once sync.Once
	done chan struct{}
	sink chan<- *Future
	resp Response
	err  error
}

func NewFuture(position int, url string, sink chan<- *Future) *Future {
	return &Future{
		Position: position,
		URL:      url,
		done:     make(chan struct{}),
		sink:     sink,
	}
}

// Complete records the outcome. Calls after the first are ignored and
// report false.
func (f *Future) Complete(resp Response, err error) bool {
	completed := false
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
		if f.sink != nil {
			f.sink <- f
		}
		completed = true
	})
	return completed
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future completes.
func (f *Future) Result() (Response, error) {
	<-f.done
	return f.resp, f.err
}

// Resolve runs fetcher for the future's URL and completes it.
func (f *Future) Resolve(ctx context.Context, fetcher Fetcher) {
	resp, err := fetcher.Fetch(ctx, f.URL)
	if err == nil && !StatusOK(resp.Status) {
		err = &Error{URL: f.URL, Status: resp.Status}
	}
	f.Complete(resp, err)
}

// Go starts the fetch on a new goroutine.
func Go(ctx context.Context, fetcher Fetcher, position int, url string, sink chan<- *Future) *Future {
	f := NewFuture(position, url, sink)
	go f.Resolve(ctx, fetcher)
	return f
}
