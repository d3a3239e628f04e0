// Package config resolves jsxhost settings from defaults, jsxhost.toml,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"jsxhost/internal/discover"
	"jsxhost/internal/fetch"
	"jsxhost/internal/pipeline"
	"jsxhost/internal/script"
	"jsxhost/internal/sequence"
	"jsxhost/internal/transform"
)

// FileName is the config file looked up from the working directory
// upwards.
const FileName = "jsxhost.toml"

// Environment overrides.
const (
	EnvHarmony  = "JSXHOST_HARMONY"
	EnvFailure  = "JSXHOST_FAILURE"
	EnvJobs     = "JSXHOST_JOBS"
	EnvCacheDir = "JSXHOST_CACHE_DIR"
)

// Config is the resolved configuration.
type Config struct {
	// Path is the config file that was applied, empty if none.
	Path string

	Harmony     bool
	Mode        script.TransformMode
	SourceMaps  bool
	JSXFactory  string
	JSXFragment string
	Cache       bool
	CacheDir    string

	Jobs      int
	CacheSize int
	UserAgent string

	Failure  sequence.Policy
	Types    []string
	Advisory bool
}

func Default() Config {
	return Config{
		Mode:       script.TransformPragma,
		SourceMaps: true,
		Jobs:       pipeline.DefaultJobs,
		CacheSize:  fetch.DefaultCacheSize,
		UserAgent:  "jsxhost",
		Failure:    sequence.FailFast,
		Types:      []string{script.DefaultType},
		Advisory:   true,
	}
}

type fileConfig struct {
	Transform transformSection `toml:"transform"`
	Fetch     fetchSection     `toml:"fetch"`
	Run       runSection       `toml:"run"`
}

type transformSection struct {
	Harmony     bool   `toml:"harmony"`
	Mode        string `toml:"mode"`
	SourceMaps  bool   `toml:"source_maps"`
	JSXFactory  string `toml:"jsx_factory"`
	JSXFragment string `toml:"jsx_fragment"`
	Cache       bool   `toml:"cache"`
	CacheDir    string `toml:"cache_dir"`
}

type fetchSection struct {
	Jobs      int    `toml:"jobs"`
	CacheSize int    `toml:"cache_size"`
	UserAgent string `toml:"user_agent"`
}

type runSection struct {
	Failure  string   `toml:"failure"`
	Types    []string `toml:"types"`
	Advisory bool     `toml:"advisory"`
}

// LoadOptions selects where Load looks.
type LoadOptions struct {
	// Dir is where the config file search and the .env lookup start.
	Dir string
	// Path names a config file explicitly; it must exist.
	Path string
	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.Path
	if path == "" {
		found, ok, err := Find(opts.Dir)
		if err != nil {
			return cfg, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if err := ApplyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	dotenv, err := readDotenv(opts.Dir)
	if err != nil {
		return cfg, err
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := ApplyEnv(&cfg, env); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Find walks from startDir to the filesystem root looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// ApplyFile overlays the keys defined in the TOML file at path onto cfg.
// Keys the file does not mention keep their current value.
func ApplyFile(cfg *Config, path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("transform", "harmony") {
		cfg.Harmony = fc.Transform.Harmony
	}
	if meta.IsDefined("transform", "mode") {
		mode, err := script.ParseTransformMode(fc.Transform.Mode)
		if err != nil {
			return fmt.Errorf("%s: [transform].mode: %w", path, err)
		}
		cfg.Mode = mode
	}
	if meta.IsDefined("transform", "source_maps") {
		cfg.SourceMaps = fc.Transform.SourceMaps
	}
	if meta.IsDefined("transform", "jsx_factory") {
		cfg.JSXFactory = strings.TrimSpace(fc.Transform.JSXFactory)
	}
	if meta.IsDefined("transform", "jsx_fragment") {
		cfg.JSXFragment = strings.TrimSpace(fc.Transform.JSXFragment)
	}
	if meta.IsDefined("transform", "cache") {
		cfg.Cache = fc.Transform.Cache
	}
	if meta.IsDefined("transform", "cache_dir") {
		cfg.CacheDir = resolveRelative(path, fc.Transform.CacheDir)
	}

	if meta.IsDefined("fetch", "jobs") {
		if fc.Fetch.Jobs < 1 {
			return fmt.Errorf("%s: [fetch].jobs must be positive", path)
		}
		cfg.Jobs = fc.Fetch.Jobs
	}
	if meta.IsDefined("fetch", "cache_size") {
		if fc.Fetch.CacheSize < 0 {
			return fmt.Errorf("%s: [fetch].cache_size must not be negative", path)
		}
		cfg.CacheSize = fc.Fetch.CacheSize
	}
	if meta.IsDefined("fetch", "user_agent") {
		cfg.UserAgent = fc.Fetch.UserAgent
	}

	if meta.IsDefined("run", "failure") {
		policy, err := sequence.ParsePolicy(fc.Run.Failure)
		if err != nil {
			return fmt.Errorf("%s: [run].failure: %w", path, err)
		}
		cfg.Failure = policy
	}
	if meta.IsDefined("run", "types") {
		if len(fc.Run.Types) == 0 {
			return fmt.Errorf("%s: [run].types must not be empty", path)
		}
		cfg.Types = fc.Run.Types
	}
	if meta.IsDefined("run", "advisory") {
		cfg.Advisory = fc.Run.Advisory
	}
	cfg.Path = path
	return nil
}

// ApplyEnv overlays the JSXHOST_* variables found through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHarmony); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHarmony, err)
		}
		cfg.Harmony = b
	}
	if v, ok := lookup(EnvFailure); ok && strings.TrimSpace(v) != "" {
		policy, err := sequence.ParsePolicy(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFailure, err)
		}
		cfg.Failure = policy
	}
	if v, ok := lookup(EnvJobs); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvJobs, v)
		}
		cfg.Jobs = n
	}
	if v, ok := lookup(EnvCacheDir); ok && strings.TrimSpace(v) != "" {
		cfg.CacheDir = strings.TrimSpace(v)
		cfg.Cache = true
	}
	return nil
}

func readDotenv(dir string) (map[string]string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

func resolveRelative(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), filepath.FromSlash(p))
}

// TransformOptions is the transform part of cfg.
func (c Config) TransformOptions() transform.Options {
	return transform.Options{
		Harmony:     c.Harmony,
		JSXFactory:  c.JSXFactory,
		JSXFragment: c.JSXFragment,
		NoSourceMap: !c.SourceMaps,
	}
}

// Pipeline converts cfg into the host configuration.
func (c Config) Pipeline() pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.Transform = c.TransformOptions()
	pc.Discover = discover.Options{Types: append([]string(nil), c.Types...), Mode: c.Mode}
	pc.Policy = c.Failure
	pc.Jobs = c.Jobs
	pc.Advisory = c.Advisory
	return pc
}

// Engine builds the transform engine, wrapped in the disk cache when
// caching is on. onError observes cache failures.
func (c Config) Engine(onError func(error)) (transform.Engine, error) {
	var engine transform.Engine = transform.Esbuild{}
	if !c.Cache {
		return engine, nil
	}
	cache, err := transform.OpenDiskCache(c.CacheDir, "jsxhost")
	if err != nil {
		return nil, fmt.Errorf("open transform cache: %w", err)
	}
	return &transform.Cached{Engine: engine, Cache: cache, OnError: onError}, nil
}

// Fetcher builds the HTTP/file fetcher. A positive CacheSize adds the
// in-memory body cache. root anchors scheme-less paths.
func (c Config) Fetcher(root string) (fetch.Fetcher, error) {
	h := fetch.NewHTTP(c.UserAgent)
	h.Root = root
	if c.CacheSize == 0 {
		return h, nil
	}
	cached, err := fetch.NewCached(h, c.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
