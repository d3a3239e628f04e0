package diagfmt

import (
	"encoding/json"
	"io"

	"jsxhost/internal/diag"
	"jsxhost/internal/source"
)

// LocationJSON представляет местоположение в скрипте для JSON.
// Для диагностик без span заполнен только File.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Snippet  string       `json:"snippet,omitempty"`
	Caret    string       `json:"caret,omitempty"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(sp source.Span, fallback string, fs *source.FileSet, opts JSONOpts) (LocationJSON, location) {
	loc := locate(sp, fallback, fs, opts.PathMode, opts.BaseURL)
	out := LocationJSON{File: loc.path}
	if !loc.resolved {
		return out, loc
	}
	out.StartByte = sp.Start
	out.EndByte = sp.End
	if opts.IncludePositions {
		out.StartLine = loc.start.Line
		out.StartCol = loc.start.Col
		out.EndLine = loc.end.Line
		out.EndCol = loc.end.Col
	}
	return out, loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	var items []diag.Diagnostic
	if bag != nil {
		items = bag.Items()
	}
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, maxItems)
	for i := range maxItems {
		d := items[i]
		locJSON, loc := makeLocation(d.Primary, d.Label, fs, opts)
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: locJSON,
		}
		if opts.IncludeSnippets && loc.resolved {
			dj.Snippet, dj.Caret = Snippet(loc.file.GetLine(loc.start.Line), int(loc.start.Col))
		}

		// тайминги всегда с заметками, иначе они пустые
		includeNotes := opts.IncludeNotes || d.Code == diag.RunTimings
		if includeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				nl, _ := makeLocation(note.Span, d.Label, fs, opts)
				dj.Notes[j] = NoteJSON{Message: note.Msg, Location: nl}
			}
		}
		diagnostics = append(diagnostics, dj)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
	}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
