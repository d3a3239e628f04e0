package diagfmt

import (
	"strings"
	"unicode"
)

// Limit is the number of characters kept on each side of the caret.
const Limit = 30

// Snippet trims line around a 1-based rune column and builds the caret line
// pointing at it.
//
// Leading whitespace is stripped and the column shifted by its width. When
// the column lies further than Limit characters in, the head is replaced by
// "... " and the caret lands on Limit+4. When more than Limit characters
// follow the caret, the tail is cut and " ..." appended.
func Snippet(line string, column int) (text, caret string) {
	runes := []rune(line)
	indent := 0
	for indent < len(runes) && unicode.IsSpace(runes[indent]) {
		indent++
	}
	runes = runes[indent:]
	col := column - indent

	if col > Limit {
		cut := min(col-Limit, len(runes))
		runes = append([]rune("... "), runes[cut:]...)
		col = Limit + 4
	}
	if len(runes)-col > Limit {
		keep := max(col+Limit, 0)
		runes = append(runes[:keep:keep], []rune(" ...")...)
	}

	return string(runes), strings.Repeat(" ", max(col-1, 0)) + "^"
}

// SourceMessage appends the failing line of src and a caret under column to
// message. line is 1-based; when it does not exist in src the message is
// returned unchanged.
func SourceMessage(message, src string, line, column int) string {
	if line < 1 {
		return message
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		return message
	}
	text, caret := Snippet(strings.TrimSuffix(lines[line-1], "\r"), column)
	return message + "\n" + text + "\n" + caret
}
