package diagfmt

import (
	"fmt"
	"sync"
)

// InlineLabel is the base label for fragments without a URL.
const InlineLabel = "Inline script"

// Labeler hands out labels for script sources within a single run.
// The first unlabeled fragment is "Inline script", later ones get " (N)"
// with N starting at 2.
type Labeler struct {
	mu     sync.Mutex
	inline int
}

func (l *Labeler) Label(origin string) string {
	if origin != "" {
		return origin
	}
	l.mu.Lock()
	l.inline++
	n := l.inline
	l.mu.Unlock()
	if n == 1 {
		return InlineLabel
	}
	return fmt.Sprintf("%s (%d)", InlineLabel, n)
}

// Issued returns how many inline labels were synthesised so far.
func (l *Labeler) Issued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inline
}
