// Package sourcemap embeds v3 source maps into transformed scripts as
// base64 data URIs and reads them back.
package sourcemap

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Prefix starts the trailing comment carrying an embedded map.
const Prefix = "//# sourceMappingURL=data:application/json;base64,"

// Map is a v3 source map. Keys this type does not model are kept in Extra
// and written back unchanged.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`

	Extra map[string]json.RawMessage `json:"-"`
}

var known = map[string]struct{}{
	"version": {}, "file": {}, "sourceRoot": {}, "sources": {},
	"sourcesContent": {}, "names": {}, "mappings": {},
}

// Parse decodes a JSON source map as produced by the transform engine.
func Parse(data []byte) (*Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty source map")
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse source map: %w", err)
	}
	return &m, nil
}

type plainMap Map

func (m *Map) UnmarshalJSON(data []byte) error {
	var p plainMap
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range known {
		delete(all, k)
	}
	*m = Map(p)
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

func (m Map) MarshalJSON() ([]byte, error) {
	if m.Sources == nil {
		m.Sources = []string{}
	}
	if m.Names == nil {
		m.Names = []string{}
	}
	base, err := json.Marshal(plainMap(m))
	if err != nil || len(m.Extra) == 0 {
		return base, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(base, &all); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, ok := known[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// Clone returns a deep enough copy for Embed to modify.
func (m *Map) Clone() *Map {
	c := *m
	c.Sources = append([]string(nil), m.Sources...)
	c.SourcesContent = append([]*string(nil), m.SourcesContent...)
	c.Names = append([]string(nil), m.Names...)
	c.Extra = maps.Clone(m.Extra)
	return &c
}

// SourceContent returns sourcesContent[i] or "" when missing.
func (m *Map) SourceContent(i int) string {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
		return ""
	}
	return *m.SourcesContent[i]
}

// Embed appends m to code as a data URI comment on its own line. The map
// is rewritten to name label as its only source and to carry original as
// that source's content. m itself is not modified.
func Embed(code string, m *Map, label, original string) (string, error) {
	if m == nil {
		return code, nil
	}
	c := m.Clone()
	if c.Version == 0 {
		c.Version = 3
	}
	c.Sources = []string{label}
	c.SourcesContent = []*string{&original}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode source map: %w", err)
	}

	var b strings.Builder
	b.Grow(len(code) + len(Prefix) + base64.StdEncoding.EncodedLen(len(data)) + 2)
	b.WriteString(code)
	if code != "" && !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(Prefix)
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	b.WriteByte('\n')
	return b.String(), nil
}

// Extract finds the last embedded map in code. ok is false when code has
// no data URI comment.
func Extract(code string) (m *Map, ok bool, err error) {
	i := strings.LastIndex(code, Prefix)
	if i < 0 {
		return nil, false, nil
	}
	payload := code[i+len(Prefix):]
	if j := strings.IndexAny(payload, "\r\n"); j >= 0 {
		payload = payload[:j]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, true, fmt.Errorf("decode source map payload: %w", err)
	}
	m, err = Parse(data)
	return m, true, err
}

// Strip removes a trailing embedded map comment, if any.
func Strip(code string) string {
	i := strings.LastIndex(code, Prefix)
	if i < 0 {
		return code
	}
	return code[:i]
}
