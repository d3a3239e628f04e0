// Package fetch retrieves external script bodies.
package fetch

import (
	"context"
	"fmt"
	"net/http"
)

// Response is a fetched script body. URL is the location the body came
// from after redirects; Status is 0 for sources without a transport status
// (local files).
type Response struct {
	Text   string
	URL    string
	Status int
}

// Fetcher loads script text by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, url string) (Response, error)

func (f Func) Fetch(ctx context.Context, url string) (Response, error) {
	return f(ctx, url)
}

// StatusOK reports whether a transport status counts as success.
// 0 (no scheme, local file) is treated the same as 200.
func StatusOK(status int) bool {
	return status == 0 || status == http.StatusOK
}

// Error is a failed load. It carries the URL that could not be loaded and
// the transport status if there was one.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	return "could not load " + e.URL
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail describes the failure beyond the URL.
func (e *Error) Detail() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Status != 0:
		return fmt.Sprintf("status %d %s", e.Status, http.StatusText(e.Status))
	}
	return ""
}
