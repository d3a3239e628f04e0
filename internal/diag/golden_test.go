package diag

import (
	"testing"

	"jsxhost/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()

	app := fs.Add("https://example.test/js/app.jsx", []byte("a\nb\n"), source.FileFetched)

	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     TrnSyntaxError,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: app, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: app, Start: 2, End: 3}, Msg: "note line"},
			},
		},
		{
			Severity: SevWarning,
			Code:     RunAdvisory,
			Message:  "another",
			Primary:  source.Span{File: app, Start: 2, End: 3},
		},
		{
			Severity: SevError,
			Code:     FetLoadFailed,
			Message:  "could not load https://example.test/js/missing.js",
			Primary:  source.NoSpan,
			Label:    "https://example.test/js/missing.js",
		},
	}

	expected := "error TRN5001 js/app.jsx:1:1 first line second\n" +
		"note TRN5001 js/app.jsx:2:1 note line\n" +
		"warning RUN7001 js/app.jsx:2:1 another\n" +
		"error FET4001 js/missing.js:0:0 could not load https://example.test/js/missing.js"

	if got := FormatShortDiagnostics(diags, fs, "https://example.test/", true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{FetLoadFailed, "FET4001"},
		{TrnSyntaxError, "TRN5001"},
		{ExeThrown, "EXE6001"},
		{RunAdvisory, "RUN7001"},
		{RunAborted, "RUN7002"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d: want %s, got %s", tt.code, tt.want, got)
		}
	}
	if TrnSyntaxError.String() != "[TRN5001]: Syntax error" {
		t.Errorf("unexpected String(): %s", TrnSyntaxError.String())
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	bag := NewBag(3)
	r := BagReporter{Bag: bag}

	ReportError(r, ExeThrown, source.Span{File: 1, Start: 4, End: 5}, "boom").Emit()
	b := ReportWarning(r, RunAdvisory, source.Span{File: 0, Start: 0, End: 0}, "advisory")
	b.Emit()
	b.Emit() // second Emit is a no-op
	ReportError(r, ExeThrown, source.Span{File: 1, Start: 4, End: 5}, "boom").Emit()
	if bag.Add(NewError(FetLoadFailed, source.NoSpan, "over limit")) {
		t.Fatal("expected Add to fail once the limit is reached")
	}
	if bag.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", bag.Len())
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatal("expected both errors and warnings")
	}

	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", bag.Len())
	}
	bag.Sort()
	items := bag.Items()
	if items[0].Code != RunAdvisory || items[1].Code != ExeThrown {
		t.Fatalf("unexpected order: %v, %v", items[0].Code, items[1].Code)
	}
}

func TestMergeGrowsLimit(t *testing.T) {
	a := NewBag(1)
	a.Add(NewError(ExeThrown, source.NoSpan, "a"))
	other := NewBag(2)
	other.Add(NewError(ExeThrown, source.NoSpan, "b"))
	other.Add(NewError(ExeThrown, source.NoSpan, "c"))

	a.Merge(other)
	if a.Len() != 3 || a.Cap() != 3 {
		t.Fatalf("expected 3 items with cap 3, got %d/%d", a.Len(), a.Cap())
	}
}
