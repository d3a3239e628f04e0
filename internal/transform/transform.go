// Package transform lowers JSX (and, in harmony mode, newer syntax) to
// plain JavaScript before execution.
package transform

import (
	"fmt"

	"jsxhost/internal/sourcemap"
)

// Options selects the visitor set and output details. The zero value
// lowers JSX only and produces a source map.
type Options struct {
	// Harmony widens the visitor set to the full ES2015+ lowering.
	Harmony     bool
	JSXFactory  string
	JSXFragment string
	// NoSourceMap disables map generation.
	NoSourceMap bool
	// Sourcefile names the input inside engine messages and the map.
	Sourcefile string
}

// Result is the transformed code and, when the engine produced one, its
// source map.
type Result struct {
	Code string
	Map  *sourcemap.Map
}

// Engine runs a syntax transform. It must be safe for concurrent use.
type Engine interface {
	Transform(src string, opts Options) (Result, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(src string, opts Options) (Result, error)

func (f EngineFunc) Transform(src string, opts Options) (Result, error) {
	return f(src, opts)
}

// SyntaxError is an engine rejection pointing at a 1-based line and
// character column of the input.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
	// Extra holds further engine messages beyond the first.
	Extra []string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%d:%d)", e.Message, e.Line, e.Column)
}
