// Package discover finds script fragments in an HTML document.
package discover

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"jsxhost/internal/script"
)

type Options struct {
	// Types lists the accepted script types; empty means script.DefaultType.
	Types []string
	// Mode is copied into every descriptor.
	Mode script.TransformMode
}

func (o Options) accepts(typ string) bool {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if len(o.Types) == 0 {
		return typ == script.DefaultType
	}
	for _, t := range o.Types {
		if strings.EqualFold(strings.TrimSpace(t), typ) {
			return true
		}
	}
	return false
}

type found struct {
	typ    string
	src    string
	inline string
	hasSrc bool
}

// Scan tokenizes the document and returns the accepted scripts in document
// order with contiguous positions. External references are resolved against
// the first <base href> if the document has one, else against base.
func Scan(r io.Reader, base *url.URL, opts Options) ([]script.Descriptor, error) {
	z := html.NewTokenizer(r)

	var (
		scripts []found
		cur     *found
		baseRef string
		sawBase bool
	)

loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("scan document: %w", err)
			}
			break loop
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Base:
				if href, ok := attr(tok, "href"); ok && !sawBase {
					baseRef, sawBase = href, true
				}
			case atom.Script:
				typ, _ := attr(tok, "type")
				src, _ := attr(tok, "src")
				f := found{typ: typ, src: strings.TrimSpace(src), hasSrc: strings.TrimSpace(src) != ""}
				scripts = append(scripts, f)
				cur = &scripts[len(scripts)-1]
				if tok.Type == html.SelfClosingTagToken {
					cur = nil
				}
			}
		case html.TextToken:
			if cur != nil {
				cur.inline += string(z.Text())
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Script {
				cur = nil
			}
		}
	}

	docBase := base
	if sawBase {
		u, err := resolve(base, baseRef)
		if err != nil {
			return nil, fmt.Errorf("invalid <base href=%q>: %w", baseRef, err)
		}
		docBase = u
	}

	out := make([]script.Descriptor, 0, len(scripts))
	for _, f := range scripts {
		if !opts.accepts(f.typ) {
			continue
		}
		d := script.Descriptor{
			Position:          len(out),
			Type:              strings.ToLower(strings.TrimSpace(f.typ)),
			RequiresTransform: opts.Mode,
		}
		if f.hasSrc {
			u, err := resolve(docBase, f.src)
			if err != nil {
				return nil, fmt.Errorf("script #%d: invalid src %q: %w", d.Position, f.src, err)
			}
			d.Origin = u.String()
		} else {
			d.Inline = true
			d.Content = f.inline
		}
		out = append(out, d)
	}
	return out, nil
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return u, nil
	}
	return base.ResolveReference(u), nil
}
