package transform

import (
	"unicode/utf8"

	"github.com/evanw/esbuild/pkg/api"

	"jsxhost/internal/sourcemap"
)

// Esbuild is the default engine. Without harmony only JSX is lowered;
// harmony additionally lowers syntax newer than ES2015.
type Esbuild struct{}

func (Esbuild) Transform(src string, opts Options) (Result, error) {
	target := api.ESNext
	if opts.Harmony {
		target = api.ES2015
	}
	sm := api.SourceMapExternal
	if opts.NoSourceMap {
		sm = api.SourceMapNone
	}

	res := api.Transform(src, api.TransformOptions{
		Loader:         api.LoaderJSX,
		Target:         target,
		Format:         api.FormatDefault,
		JSX:            api.JSXTransform,
		JSXFactory:     opts.JSXFactory,
		JSXFragment:    opts.JSXFragment,
		Sourcemap:      sm,
		SourcesContent: api.SourcesContentInclude,
		Sourcefile:     opts.Sourcefile,
		LogLevel:       api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return Result{}, syntaxError(res.Errors)
	}

	out := Result{Code: string(res.Code)}
	if len(res.Map) > 0 {
		m, err := sourcemap.Parse(res.Map)
		if err != nil {
			return Result{}, err
		}
		out.Map = m
	}
	return out, nil
}

func syntaxError(msgs []api.Message) *SyntaxError {
	first := msgs[0]
	se := &SyntaxError{Message: first.Text, Line: 1, Column: 1}
	if loc := first.Location; loc != nil {
		se.Line = loc.Line
		se.Column = charColumn(loc.LineText, loc.Column)
	}
	for _, m := range msgs[1:] {
		se.Extra = append(se.Extra, m.Text)
	}
	return se
}

// charColumn converts esbuild's 0-based byte column into a 1-based
// character column.
func charColumn(line string, byteCol int) int {
	if byteCol <= 0 {
		return 1
	}
	if byteCol > len(line) {
		return utf8.RuneCountInString(line) + (byteCol - len(line)) + 1
	}
	return utf8.RuneCountInString(line[:byteCol]) + 1
}
