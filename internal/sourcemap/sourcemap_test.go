package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

const engineMap = `{
  "version": 3,
  "sources": ["<stdin>"],
  "sourcesContent": ["old"],
  "mappings": "AAAA,IAAI",
  "names": [],
  "x_google_ignoreList": [0]
}`

func TestEmbedRoundTrip(t *testing.T) {
	m, err := Parse([]byte(engineMap))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	original := "/** @jsx React.DOM */\nvar a = <b/>;\n"
	code := "var a = React.createElement(\"b\", null);"

	out, err := Embed(code, m, "https://example.test/app.jsx", original)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !strings.HasPrefix(out, code+"\n"+Prefix) {
		t.Fatalf("map comment must start on its own line:\n%s", out)
	}

	// декодируем вручную, без Extract
	b64 := strings.TrimSuffix(strings.TrimPrefix(out, code+"\n"+Prefix), "\n")
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	var decoded struct {
		Sources        []string        `json:"sources"`
		SourcesContent []string        `json:"sourcesContent"`
		Mappings       string          `json:"mappings"`
		IgnoreList     json.RawMessage `json:"x_google_ignoreList"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(decoded.Sources) != 1 || decoded.Sources[0] != "https://example.test/app.jsx" {
		t.Errorf("sources = %v", decoded.Sources)
	}
	if len(decoded.SourcesContent) != 1 || decoded.SourcesContent[0] != original {
		t.Errorf("sourcesContent = %q", decoded.SourcesContent)
	}
	if decoded.Mappings != "AAAA,IAAI" || string(decoded.IgnoreList) != "[0]" {
		t.Errorf("engine data lost: mappings=%q extra=%s", decoded.Mappings, decoded.IgnoreList)
	}

	if m.Sources[0] != "<stdin>" {
		t.Error("Embed must not modify the input map")
	}

	back, ok, err := Extract(out)
	if err != nil || !ok {
		t.Fatalf("Extract: ok=%v err=%v", ok, err)
	}
	if back.SourceContent(0) != original || back.Sources[0] != "https://example.test/app.jsx" {
		t.Errorf("Extract mismatch: %+v", back)
	}
	if Strip(out) != code+"\n" {
		t.Errorf("Strip left %q", Strip(out))
	}
}

func TestEmbedNilMap(t *testing.T) {
	out, err := Embed("a();", nil, "x", "a();")
	if err != nil || out != "a();" {
		t.Fatalf("nil map must pass code through, got %q %v", out, err)
	}
}

func TestExtractMissingAndBroken(t *testing.T) {
	if _, ok, err := Extract("plain();"); ok || err != nil {
		t.Fatalf("expected no map, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := Extract("x();\n" + Prefix + "!!!not base64"); !ok || err == nil {
		t.Fatalf("expected decode error, got ok=%v err=%v", ok, err)
	}
	if _, err := Parse(nil); err == nil {
		t.Fatal("expected error for empty map")
	}
}
