package diagfmt

// PathMode specifies how script labels are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short labels as is and shortens long URLs to their last segment.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always prints the full label.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

func (m PathMode) String() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// ParsePathMode accepts the names printed by String.
func ParsePathMode(s string) (PathMode, bool) {
	switch s {
	case "auto", "":
		return PathModeAuto, true
	case "absolute":
		return PathModeAbsolute, true
	case "relative":
		return PathModeRelative, true
	case "basename":
		return PathModeBasename, true
	}
	return PathModeAuto, false
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseURL   string // для PathModeRelative
	Width     uint8  // максимальная ширина заголовка, 0 - не ограничено
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	IncludeSnippets  bool
	PathMode         PathMode
	BaseURL          string
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
}
