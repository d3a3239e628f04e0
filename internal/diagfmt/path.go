package diagfmt

import (
	"unicode/utf8"

	"jsxhost/internal/diag"
	"jsxhost/internal/source"
)

type location struct {
	path     string
	resolved bool
	file     *source.File
	start    source.LineCol
	end      source.LineCol
}

// locate resolves a span to a printable label and position. Diagnostics
// without a span fall back to their label.
func locate(sp source.Span, fallback string, fs *source.FileSet, mode PathMode, baseURL string) location {
	if fs == nil || !sp.Valid() || !fs.HasFile(sp.File) {
		return location{path: fallbackPath(fallback, mode, baseURL)}
	}
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	return location{
		path:     f.FormatPath(mode.String(), baseURL),
		resolved: true,
		file:     f,
		start:    runeColumn(f, start),
		end:      runeColumn(f, end),
	}
}

// runeColumn turns the byte column reported by FileSet.Resolve into a
// character column, which is what users and Snippet count in.
func runeColumn(f *source.File, lc source.LineCol) source.LineCol {
	line := f.GetLine(lc.Line)
	n := min(int(lc.Col)-1, len(line))
	if n <= 0 {
		return lc
	}
	lc.Col = uint32(utf8.RuneCountInString(line[:n])) + lc.Col - uint32(n)
	return lc
}

func fallbackPath(label string, mode PathMode, baseURL string) string {
	if label == "" {
		return "<unknown>"
	}
	tmp := source.File{Path: label}
	return tmp.FormatPath(mode.String(), baseURL)
}

func primaryLocation(d *diag.Diagnostic, fs *source.FileSet, mode PathMode, baseURL string) location {
	return locate(d.Primary, d.Label, fs, mode, baseURL)
}
