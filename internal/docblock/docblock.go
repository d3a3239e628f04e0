// Package docblock reads pragmas from the leading /** ... */ comment of a script.
//
//	/**
//	 * @jsx React.DOM
//	 */
//
// Only the first comment counts, and only when nothing but whitespace
// precedes it.
package docblock

import (
	"regexp"
	"strings"
)

var (
	leadingRe  = regexp.MustCompile(`^\s*(/\*\*(?s:.*?)\*/)`)
	startRe    = regexp.MustCompile(`^/\*\*?`)
	endRe      = regexp.MustCompile(`\*+/$`)
	wsRe       = regexp.MustCompile(`[\t ]+`)
	starRe     = regexp.MustCompile(`(?m)^ *\*`)
	propertyRe = regexp.MustCompile(`^@(\S+) *(.*)$`)
)

// Extract returns the leading docblock of src, or "" when there is none.
func Extract(src string) string {
	m := leadingRe.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	return m[1]
}

// Parse turns a docblock into its pragmas. A pragma value may continue on
// following lines until the next @-line or a blank line. When a name repeats
// the last value wins.
func Parse(block string) map[string]string {
	out := make(map[string]string)
	if block == "" {
		return out
	}
	block = strings.ReplaceAll(block, "\r\n", "\n")
	block = startRe.ReplaceAllString(block, "")
	block = endRe.ReplaceAllString(block, "")
	block = wsRe.ReplaceAllString(block, " ")
	block = starRe.ReplaceAllString(block, "")

	var name string
	var value []string
	flush := func() {
		if name != "" {
			out[name] = strings.Join(value, " ")
		}
		name, value = "", nil
	}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "@"):
			flush()
			if m := propertyRe.FindStringSubmatch(line); m != nil {
				name = m[1]
				if v := strings.TrimSpace(m[2]); v != "" {
					value = append(value, v)
				}
			}
		case name != "":
			value = append(value, line)
		}
	}
	flush()
	return out
}

// Pragma returns the value of a pragma in the leading docblock of src.
func Pragma(src, name string) (string, bool) {
	v, ok := Parse(Extract(src))[name]
	return v, ok
}

// HasPragma reports whether src declares name with a non-empty value.
// A bare "@jsx" without a value does not count.
func HasPragma(src, name string) bool {
	v, ok := Pragma(src, name)
	return ok && v != ""
}
