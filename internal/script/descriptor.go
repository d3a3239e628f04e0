// Package script describes the script fragments found in a document.
package script

import (
	"fmt"
	"strings"

	"jsxhost/internal/docblock"
)

// DefaultType is the script type picked up by document discovery.
const DefaultType = "text/jsx"

// TransformMode decides whether a fragment goes through the transformer.
type TransformMode uint8

const (
	// TransformPragma transforms only sources whose leading docblock has @jsx.
	TransformPragma TransformMode = iota
	TransformAlways
	TransformNever
)

func (m TransformMode) String() string {
	switch m {
	case TransformAlways:
		return "always"
	case TransformNever:
		return "never"
	default:
		return "pragma"
	}
}

func ParseTransformMode(s string) (TransformMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pragma":
		return TransformPragma, nil
	case "always":
		return TransformAlways, nil
	case "never":
		return TransformNever, nil
	}
	return TransformPragma, fmt.Errorf("unknown transform mode %q (want pragma, always or never)", s)
}

// Requires resolves the mode against the fragment text.
func (m TransformMode) Requires(content string) bool {
	switch m {
	case TransformAlways:
		return true
	case TransformNever:
		return false
	default:
		return docblock.HasPragma(content, "jsx")
	}
}

// Descriptor is one discovered fragment. Origin is empty for inline ones;
// Content of external fragments is filled in once the fetch completes.
type Descriptor struct {
	Position          int
	Origin            string
	Type              string
	Content           string
	Inline            bool
	RequiresTransform TransformMode
}

func (d Descriptor) String() string {
	if d.Inline {
		return fmt.Sprintf("#%d inline", d.Position)
	}
	return fmt.Sprintf("#%d %s", d.Position, d.Origin)
}

// Validate checks that positions form the contiguous range 0..N-1 in order
// and that every external fragment names its origin.
func Validate(descs []Descriptor) error {
	for i, d := range descs {
		if d.Position != i {
			return fmt.Errorf("descriptor %d has position %d, want %d", i, d.Position, i)
		}
		if !d.Inline && d.Origin == "" {
			return fmt.Errorf("descriptor %d is external but has no origin", i)
		}
	}
	return nil
}
