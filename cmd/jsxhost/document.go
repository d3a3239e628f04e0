package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"jsxhost/internal/fetch"
)

type document struct {
	text string
	base *url.URL
	// root anchors scheme-less script paths; empty for remote documents.
	root string
}

// loadDocument reads the page named by arg: an http(s) URL, a file:// URL,
// a local path, or "-" for stdin. baseOverride replaces the base URL the
// page's script references resolve against.
func loadDocument(ctx context.Context, arg, baseOverride, userAgent string, stdin io.Reader) (*document, error) {
	doc, err := readDocument(ctx, arg, userAgent, stdin)
	if err != nil {
		return nil, err
	}
	if baseOverride != "" {
		base, err := url.Parse(baseOverride)
		if err != nil {
			return nil, fmt.Errorf("invalid --base %q: %w", baseOverride, err)
		}
		doc.base = base
	}
	return doc, nil
}

func readDocument(ctx context.Context, arg, userAgent string, stdin io.Reader) (*document, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		return &document{text: string(data), base: fileURL(wd + string(filepath.Separator)), root: wd}, nil
	}

	u, err := url.Parse(arg)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			resp, err := fetch.NewHTTP(userAgent).Fetch(ctx, arg)
			if err != nil {
				return nil, err
			}
			base, err := url.Parse(resp.URL)
			if err != nil {
				return nil, fmt.Errorf("invalid document URL %q: %w", resp.URL, err)
			}
			return &document{text: resp.Text, base: base}, nil
		case "file":
			arg = u.Path
		}
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return &document{text: string(data), base: fileURL(abs), root: filepath.Dir(abs)}, nil
}

func fileURL(path string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
}
