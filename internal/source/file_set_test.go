package source

import (
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("https://example.test/app.js", []byte("hello world"), FileFetched)
	if id1 != 0 {
		t.Errorf("Expected first FileID to be 0, got %d", id1)
	}

	latestID, exists := fs.GetLatest("https://example.test/app.js")
	if !exists {
		t.Fatal("Expected source to exist after Add")
	}
	if latestID != id1 {
		t.Errorf("Expected latest ID to be %d, got %d", id1, latestID)
	}

	// тот же label с новым содержимым
	id2 := fs.Add("https://example.test/app.js", []byte("hello universe"), FileFetched)
	if id2 != 1 {
		t.Errorf("Expected second FileID to be 1, got %d", id2)
	}

	latestID, _ = fs.GetLatest("https://example.test/app.js")
	if latestID != id2 {
		t.Errorf("Expected latest ID to be %d, got %d", id2, latestID)
	}

	if got := string(fs.Get(id1).Content); got != "hello world" {
		t.Errorf("Expected first content 'hello world', got %q", got)
	}
	if got := string(fs.Get(id2).Content); got != "hello universe" {
		t.Errorf("Expected second content 'hello universe', got %q", got)
	}
	if fs.Len() != 2 {
		t.Errorf("Expected 2 sources, got %d", fs.Len())
	}
}

func TestAddVirtualLineIdx(t *testing.T) {
	fs := NewFileSet()

	id := fs.AddVirtual("Inline script", []byte("a\nb\n"))
	file := fs.Get(id)

	expected := []uint32{1, 3}
	if len(file.LineIdx) != len(expected) {
		t.Fatalf("Expected LineIdx length %d, got %d", len(expected), len(file.LineIdx))
	}
	for i, val := range expected {
		if file.LineIdx[i] != val {
			t.Errorf("Expected LineIdx[%d] = %d, got %d", i, val, file.LineIdx[i])
		}
	}
	if file.Flags&FileVirtual == 0 {
		t.Error("Expected FileVirtual flag to be set")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		flags FileFlags
	}{
		{name: "plain", in: "a\nb\n", want: "a\nb\n", flags: 0},
		{name: "crlf", in: "a\r\nb\r\n", want: "a\nb\n", flags: FileNormalizedCRLF},
		{name: "lone cr kept", in: "a\rb", want: "a\rb", flags: 0},
		{name: "bom", in: "\xEF\xBB\xBFx\n", want: "x\n", flags: FileHadBOM},
		{name: "bom and crlf", in: "\xEF\xBB\xBFx\r\n", want: "x\n", flags: FileHadBOM | FileNormalizedCRLF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, flags := Normalize([]byte(tt.in))
			if string(got) != tt.want {
				t.Errorf("content: want %q, got %q", tt.want, string(got))
			}
			if flags != tt.flags {
				t.Errorf("flags: want %b, got %b", tt.flags, flags)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("Inline script", []byte("ab\ncd\n"))

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{off: 0, want: LineCol{Line: 1, Col: 1}},
		{off: 2, want: LineCol{Line: 1, Col: 3}}, // '\n' stays on its line
		{off: 3, want: LineCol{Line: 2, Col: 1}},
		{off: 4, want: LineCol{Line: 2, Col: 2}},
		{off: 6, want: LineCol{Line: 3, Col: 1}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start != tt.want {
			t.Errorf("offset %d: want %+v, got %+v", tt.off, tt.want, start)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	file := fs.Get(fs.AddVirtual("x.js", []byte("first\n  second\nthird")))

	cases := map[uint32]string{
		0: "",
		1: "first",
		2: "  second",
		3: "third",
		4: "",
	}
	for line, want := range cases {
		if got := file.GetLine(line); got != want {
			t.Errorf("line %d: want %q, got %q", line, want, got)
		}
	}
}

func TestSpanAtRoundTrip(t *testing.T) {
	fs := NewFileSet()
	file := fs.Get(fs.AddVirtual("x.js", []byte("let α = 1;\nfoo(<div>);\n")))

	sp := file.SpanAt(2, 5)
	start, _ := fs.Resolve(sp)
	if start != (LineCol{Line: 2, Col: 5}) {
		t.Fatalf("expected 2:5, got %+v", start)
	}
	if got := string(file.Content[sp.Start:sp.End]); got != "<" {
		t.Fatalf("expected span over '<', got %q", got)
	}

	// α занимает 2 байта, колонка 7 на первой строке это "="
	sp = file.SpanAt(1, 7)
	if got := string(file.Content[sp.Start:sp.End]); got != "=" {
		t.Fatalf("expected span over '=', got %q", got)
	}

	end := file.SpanAt(99, 1)
	if !end.Empty() || int(end.Start) != len(file.Content) {
		t.Fatalf("expected empty span at EOF, got %v", end)
	}
}

func TestFormatPath(t *testing.T) {
	fs := NewFileSet()
	fetched := fs.Get(fs.Add("https://example.test/js/app.jsx", nil, FileFetched))
	inline := fs.Get(fs.Add("Inline script (2)", nil, FileInline|FileVirtual))

	if got := fetched.FormatPath("relative", "https://example.test/"); got != "js/app.jsx" {
		t.Errorf("relative: got %q", got)
	}
	if got := fetched.FormatPath("basename", ""); got != "app.jsx" {
		t.Errorf("basename: got %q", got)
	}
	if got := inline.FormatPath("basename", ""); got != "Inline script (2)" {
		t.Errorf("inline basename: got %q", got)
	}
	if got := fetched.FormatPath("absolute", ""); got != "https://example.test/js/app.jsx" {
		t.Errorf("absolute: got %q", got)
	}
}

func TestEdgeCases(t *testing.T) {
	fs := NewFileSet()

	empty := fs.Get(fs.AddVirtual("empty.js", []byte{}))
	if len(empty.LineIdx) != 0 {
		t.Errorf("Expected empty LineIdx for empty source, got length %d", len(empty.LineIdx))
	}

	onlyNewline := fs.Get(fs.AddVirtual("nl.js", []byte("\n")))
	if len(onlyNewline.LineIdx) != 1 || onlyNewline.LineIdx[0] != 0 {
		t.Errorf("Expected LineIdx [0], got %v", onlyNewline.LineIdx)
	}

	if fs.HasFile(FileID(42)) {
		t.Error("Expected HasFile to be false for unknown id")
	}
	if fs.Get(FileID(42)) != nil {
		t.Error("Expected Get to return nil for unknown id")
	}
}
