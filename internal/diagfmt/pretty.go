package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"jsxhost/internal/diag"
	"jsxhost/internal/source"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//	    <обрезанная строка>
//	    ^
//
// затем Notes. Диагностики без span печатают только заголовок с label.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		prettyOne(w, &d, fs, opts, p)
	}
}

type palette struct {
	err, warn, info, path, caret, note func(a ...any) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		err:   mk(color.FgRed, color.Bold),
		warn:  mk(color.FgYellow, color.Bold),
		info:  mk(color.FgCyan),
		path:  mk(color.Bold),
		caret: mk(color.FgGreen, color.Bold),
		note:  mk(color.FgBlue),
	}
}

func (p palette) severity(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return p.err(sev.String())
	case diag.SevWarning:
		return p.warn(sev.String())
	default:
		return p.info(sev.String())
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	loc := primaryLocation(d, fs, opts.PathMode, opts.BaseURL)

	var header string
	if loc.resolved {
		header = fmt.Sprintf("%s:%d:%d: %s %s: %s",
			p.path(loc.path), loc.start.Line, loc.start.Col,
			p.severity(d.Severity), d.Code.ID(), firstLine(d.Message))
	} else {
		header = fmt.Sprintf("%s: %s %s: %s",
			p.path(loc.path), p.severity(d.Severity), d.Code.ID(), firstLine(d.Message))
	}
	if opts.Width > 0 {
		header = runewidth.Truncate(header, int(opts.Width), "…")
	}
	fmt.Fprintln(w, header)

	if loc.resolved {
		writeSnippet(w, loc, p)
	}

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nloc := locate(n.Span, d.Label, fs, opts.PathMode, opts.BaseURL)
		if nloc.resolved {
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note("note:"), nloc.path, nloc.start.Line, nloc.start.Col, n.Msg)
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", p.note("note:"), n.Msg)
	}
}

func writeSnippet(w io.Writer, loc location, p palette) {
	line := loc.file.GetLine(loc.start.Line)
	if strings.TrimSpace(line) == "" {
		return
	}
	text, caret := Snippet(line, int(loc.start.Col))
	fmt.Fprintf(w, "    %s\n    %s\n", text, p.caret(caret))
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
