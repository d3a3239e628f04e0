package source

type (
	// FileID uniquely identifies a script source within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a script source.
	FileFlags uint8
)

const (
	// FileVirtual marks a source that did not come from a fetch (tests, stdin, inline).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FileInline marks a fragment embedded directly in the document.
	FileInline
	// FileFetched marks a body retrieved through the fetcher.
	FileFetched
)

// File captures metadata and content for a single script source.
// Path is the human-readable label: a URL for fetched scripts,
// "Inline script (N)" for inline fragments.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offsets of every '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
