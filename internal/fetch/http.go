package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"jsxhost/internal/source"
)

// HTTP loads http(s) URLs with net/http and reads file:// URLs and bare
// paths from disk. Bodies are decoded to UTF-8 using the declared charset
// and normalized (BOM dropped, CRLF folded).
type HTTP struct {
	Client    *http.Client
	UserAgent string
	// Root resolves bare relative paths; empty means the working directory.
	Root string
}

func NewHTTP(userAgent string) *HTTP {
	return &HTTP{Client: http.DefaultClient, UserAgent: userAgent}
}

func (h *HTTP) Fetch(ctx context.Context, rawURL string) (Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Response{}, &Error{URL: rawURL, Err: err}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return h.fetchHTTP(ctx, rawURL)
	case "file":
		return h.fetchFile(rawURL, u.Path)
	case "":
		p := u.Path
		if h.Root != "" && !filepath.IsAbs(p) {
			p = filepath.Join(h.Root, filepath.FromSlash(p))
		}
		return h.fetchFile(rawURL, p)
	default:
		return Response{}, &Error{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (h *HTTP) fetchHTTP(ctx context.Context, rawURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return Response{}, &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "text/plain, */*")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if !StatusOK(resp.StatusCode) {
		// тело не нужно, но дочитываем для переиспользования соединения
		_, _ = io.Copy(io.Discard, resp.Body)
		return Response{}, &Error{URL: rawURL, Status: resp.StatusCode}
	}

	text, err := decode(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return Response{}, &Error{URL: rawURL, Status: resp.StatusCode, Err: err}
	}
	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return Response{Text: text, URL: final, Status: resp.StatusCode}, nil
}

func (h *HTTP) fetchFile(rawURL, path string) (Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return Response{}, &Error{URL: rawURL, Err: err}
	}
	defer f.Close()
	text, err := decode(f, "")
	if err != nil {
		return Response{}, &Error{URL: rawURL, Err: err}
	}
	return Response{Text: text, URL: rawURL, Status: 0}, nil
}

// decode reads body as text in the charset named by contentType (UTF-8 when
// absent or unknown to htmlindex).
func decode(body io.Reader, contentType string) (string, error) {
	r := body
	if cs := charsetOf(contentType); cs != "" {
		if enc, err := htmlindex.Get(cs); err == nil {
			r = transform.NewReader(body, enc.NewDecoder())
		}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	norm, _ := source.Normalize(raw)
	return string(norm), nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	cs := strings.TrimSpace(params["charset"])
	if strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "utf8") {
		return ""
	}
	return cs
}
