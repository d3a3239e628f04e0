package diag

import (
	"jsxhost/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	// Label is the source label for diagnostics without a resolvable span
	// (fetch failures carry the URL here).
	Label string
	Notes []Note
}
