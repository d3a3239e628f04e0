package source

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// FileSet manages the script sources seen during one run and resolves
// byte offsets to human-readable positions.
// It is safe for concurrent use: fetch goroutines add bodies while the run
// loop resolves diagnostics.
type FileSet struct {
	mu    sync.RWMutex
	files []File
	index map[string]FileID // label -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a source, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a source with the same label exists.
func (fileSet *FileSet) Add(label string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)

	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()

	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    label,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	// индекс всегда указывает на последнюю версию
	fileSet.index[label] = id
	return id
}

// AddVirtual adds a source that was not fetched (inline fragment, stdin, test).
func (fileSet *FileSet) AddVirtual(label string, content []byte) FileID {
	return fileSet.Add(label, content, FileVirtual)
}

// Len reports the number of stored sources.
func (fileSet *FileSet) Len() int {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return len(fileSet.files)
}

// HasFile reports whether id refers to a stored source.
func (fileSet *FileSet) HasFile(id FileID) bool {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return int(id) < len(fileSet.files)
}

// Get returns the source metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	if int(id) >= len(fileSet.files) {
		return nil
	}
	f := fileSet.files[id]
	return &f
}

// GetLatest returns the latest FileID stored under label.
func (fileSet *FileSet) GetLatest(label string) (FileID, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	id, ok := fileSet.index[label]
	return id, ok
}

// GetByPath returns the latest source stored under label.
func (fileSet *FileSet) GetByPath(label string) (*File, bool) {
	id, ok := fileSet.GetLatest(label)
	if !ok {
		return nil, false
	}
	return fileSet.Get(id), true
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	if f == nil {
		return LineCol{}, LineCol{}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// GetLine returns line lineNum (1-based) without its trailing newline.
// Missing lines yield "".
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}

	lenLineIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}

	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if (lineNum - 1) < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start > lenContent || start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// SpanAt builds a one-character span at a 1-based line and rune column.
// Positions outside the source collapse to an empty span at its end.
func (f *File) SpanAt(line, col uint32) Span {
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	text := f.GetLine(line)
	var lineStart uint32
	switch {
	case line <= 1:
		lineStart = 0
	case int(line-2) < len(f.LineIdx):
		lineStart = f.LineIdx[line-2] + 1
	default:
		return Span{File: f.ID, Start: lenContent, End: lenContent}
	}
	off, err := safecast.Conv[uint32](runeOffset(text, col))
	if err != nil {
		panic(fmt.Errorf("column offset overflow: %w", err))
	}
	start := min(lineStart+off, lenContent)
	end := min(start+1, lenContent)
	return Span{File: f.ID, Start: start, End: end}
}

// FormatPath formats the source label according to mode
// ("absolute", "relative", "basename", "auto").
// Labels are URLs or synthetic names, so "relative" strips baseURL when
// the label lives under it.
func (f *File) FormatPath(mode, baseURL string) string {
	switch mode {
	case "relative":
		if baseURL != "" && strings.HasPrefix(f.Path, baseURL) {
			rel := strings.TrimPrefix(f.Path[len(baseURL):], "/")
			if rel != "" {
				return rel
			}
		}
		return f.Path
	case "basename":
		if f.Flags&FileInline != 0 {
			return f.Path
		}
		return path.Base(f.Path)
	case "auto":
		if len(f.Path) < 60 || f.Flags&FileInline != 0 {
			return f.Path
		}
		return path.Base(f.Path)
	default:
		return f.Path
	}
}
