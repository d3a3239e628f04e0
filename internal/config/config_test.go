package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jsxhost/internal/script"
	"jsxhost/internal/sequence"
	"jsxhost/internal/transform"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func noEnv(string) (string, bool) { return "", false }

func TestDefaultWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoadOptions{Dir: dir, LookupEnv: noEnv})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		// a jsxhost.toml above the temp dir would leak in here
		t.Skipf("found unrelated %s", cfg.Path)
	}
	def := Default()
	if cfg.Failure != sequence.FailFast || !cfg.SourceMaps || cfg.Jobs != def.Jobs || cfg.Mode != script.TransformPragma {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	pc := cfg.Pipeline()
	if pc.Transform.Harmony || pc.Transform.NoSourceMap || len(pc.Discover.Types) != 1 || pc.Discover.Types[0] != script.DefaultType {
		t.Fatalf("unexpected pipeline config %+v", pc)
	}
}

func TestFindWalksParents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[run]\nfailure = \"isolate\"\n")
	nested := filepath.Join(root, "site", "js")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find: ok=%v err=%v", ok, err)
	}
	if path != filepath.Join(root, FileName) {
		t.Fatalf("unexpected path %s", path)
	}

	cfg, err := Load(LoadOptions{Dir: nested, LookupEnv: noEnv})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Failure != sequence.Isolate {
		t.Fatalf("expected isolate from file, got %s", cfg.Failure)
	}
}

func TestApplyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
[transform]
harmony = true
mode = "always"
source_maps = false
jsx_factory = "h"
cache = true
cache_dir = "cache"

[fetch]
jobs = 3
user_agent = "test-agent"

[run]
types = ["text/jsx", "text/babel"]
advisory = false
`)

	cfg := Default()
	if err := ApplyFile(&cfg, path); err != nil {
		t.Fatal(err)
	}
	if !cfg.Harmony || cfg.Mode != script.TransformAlways || cfg.SourceMaps || cfg.JSXFactory != "h" {
		t.Errorf("transform section not applied: %+v", cfg)
	}
	if !cfg.Cache || cfg.CacheDir != filepath.Join(dir, "cache") {
		t.Errorf("cache dir should resolve against the file, got %q", cfg.CacheDir)
	}
	if cfg.Jobs != 3 || cfg.UserAgent != "test-agent" {
		t.Errorf("fetch section not applied: %+v", cfg)
	}
	if cfg.CacheSize != Default().CacheSize {
		t.Errorf("undefined keys must keep defaults, got cache_size %d", cfg.CacheSize)
	}
	if len(cfg.Types) != 2 || cfg.Advisory {
		t.Errorf("run section not applied: %+v", cfg)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestApplyFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "syntax", content: "[run\n", want: "failed to parse TOML"},
		{name: "unknown key", content: "[run]\nspeed = 1\n", want: "unknown key run.speed"},
		{name: "bad mode", content: "[transform]\nmode = \"sometimes\"\n", want: "[transform].mode"},
		{name: "bad policy", content: "[run]\nfailure = \"retry\"\n", want: "[run].failure"},
		{name: "bad jobs", content: "[fetch]\njobs = 0\n", want: "[fetch].jobs"},
		{name: "empty types", content: "[run]\ntypes = []\n", want: "[run].types"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tt.content)
			cfg := Default()
			err := ApplyFile(&cfg, path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "[transform]\nharmony = false\n[fetch]\njobs = 2\n[run]\nfailure = \"fail-fast\"\n")
	writeFile(t, filepath.Join(dir, ".env"), "JSXHOST_HARMONY=true\nJSXHOST_JOBS=5\n")

	env := map[string]string{EnvJobs: "7", EnvFailure: "isolate"}
	cfg, err := Load(LoadOptions{Dir: dir, LookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Harmony {
		t.Error(".env should override the file")
	}
	if cfg.Jobs != 7 {
		t.Errorf("process env should override .env, got jobs=%d", cfg.Jobs)
	}
	if cfg.Failure != sequence.Isolate {
		t.Errorf("expected isolate, got %s", cfg.Failure)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	for key, value := range map[string]string{
		EnvHarmony: "maybe",
		EnvJobs:    "-1",
		EnvFailure: "sometimes",
	} {
		cfg := Default()
		err := ApplyEnv(&cfg, func(k string) (string, bool) {
			if k == key {
				return value, true
			}
			return "", false
		})
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Errorf("%s=%s: expected error naming the variable, got %v", key, value, err)
		}
	}
}

func TestEngineAndFetcher(t *testing.T) {
	cfg := Default()
	engine, err := cfg.Engine(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := engine.(transform.Esbuild); !ok {
		t.Fatalf("expected plain esbuild engine, got %T", engine)
	}

	cfg.Cache = true
	cfg.CacheDir = t.TempDir()
	engine, err = cfg.Engine(nil)
	if err != nil {
		t.Fatal(err)
	}
	cached, ok := engine.(*transform.Cached)
	if !ok || cached.Cache.Dir() != cfg.CacheDir {
		t.Fatalf("expected cached engine in %s, got %T", cfg.CacheDir, engine)
	}

	if _, err := cfg.Fetcher(""); err != nil {
		t.Fatal(err)
	}
}
