package transform

import (
	"errors"
	"fmt"

	"jsxhost/internal/diagfmt"
)

// SourceError is a transform failure enriched with the script label and a
// pinpointed excerpt of the offending line. Error returns the full text:
//
//	Unexpected "<"
//	    at app.jsx:3:9
//	var a = <<b/>;
//	        ^
type SourceError struct {
	Label   string
	Line    int
	Column  int
	Message string
	Detail  string
	Err     error
}

func (e *SourceError) Error() string {
	return e.Detail
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Adapter decides whether a fragment goes through Engine and enriches
// failures. It is the only entry the run loop uses.
type Adapter struct {
	Engine  Engine
	Options Options
}

func NewAdapter(engine Engine, opts Options) *Adapter {
	return &Adapter{Engine: engine, Options: opts}
}

// Apply returns src unchanged with no map when requires is false.
// Otherwise it runs the engine with label as the source file name.
func (a *Adapter) Apply(src, label string, requires bool) (Result, error) {
	if !requires {
		return Result{Code: src}, nil
	}
	if a.Engine == nil {
		return Result{}, errors.New("transform: no engine configured")
	}
	opts := a.Options
	opts.Sourcefile = label

	res, err := a.Engine.Transform(src, opts)
	if err == nil {
		return res, nil
	}
	var se *SyntaxError
	if !errors.As(err, &se) {
		return Result{}, fmt.Errorf("transform %s: %w", label, err)
	}
	return Result{}, Enrich(se, src, label)
}

// Enrich builds the SourceError for a syntax error in src.
func Enrich(se *SyntaxError, src, label string) *SourceError {
	header := fmt.Sprintf("%s\n    at %s:%d:%d", se.Message, label, se.Line, se.Column)
	return &SourceError{
		Label:   label,
		Line:    se.Line,
		Column:  se.Column,
		Message: se.Message,
		Detail:  diagfmt.SourceMessage(header, src, se.Line, se.Column),
		Err:     se,
	}
}
