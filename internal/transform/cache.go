package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"jsxhost/internal/sourcemap"
)

// Current schema version - increment when diskEntry format changes
const diskCacheSchemaVersion uint16 = 1

// Key identifies a transform result: sha256 over the source and every
// option that influences the output.
type Key [32]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

func KeyFor(src string, opts Options) Key {
	h := sha256.New()
	fmt.Fprintf(h, "v%d\x00%t\x00%s\x00%s\x00%t\x00%s\x00",
		diskCacheSchemaVersion, opts.Harmony, opts.JSXFactory, opts.JSXFragment,
		opts.NoSourceMap, opts.Sourcefile)
	h.Write([]byte(src))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// DiskCache хранит результаты трансформации на диске, по одному файлу на ключ.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type diskEntry struct {
	Schema uint16
	Code   string
	Map    []byte // JSON source map, пусто если карты нет
}

// OpenDiskCache opens (creating if needed) a cache rooted at dir. An empty
// dir selects $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func OpenDiskCache(dir, app string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(key Key) string {
	return filepath.Join(c.dir, "transforms", key.String()+".mp")
}

// Put serializes and writes a result to the disk cache.
func (c *DiskCache) Put(key Key, res Result) error {
	if c == nil {
		return nil
	}
	entry := diskEntry{Schema: diskCacheSchemaVersion, Code: res.Code}
	if res.Map != nil {
		data, err := res.Map.MarshalJSON()
		if err != nil {
			return err
		}
		entry.Map = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Атомарная замена
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads a cached result. Entries written by another schema version are
// reported as misses.
func (c *DiskCache) Get(key Key) (Result, bool, error) {
	if c == nil {
		return Result{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, false, nil
		}
		return Result{}, false, err
	}
	defer f.Close()

	var entry diskEntry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return Result{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if entry.Schema != diskCacheSchemaVersion {
		return Result{}, false, nil
	}
	res := Result{Code: entry.Code}
	if len(entry.Map) > 0 {
		m, err := sourcemap.Parse(entry.Map)
		if err != nil {
			return Result{}, false, err
		}
		res.Map = m
	}
	return res, true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// Cached wraps an Engine with a DiskCache. Only successful results are
// stored; cache I/O failures fall back to the engine.
type Cached struct {
	Engine Engine
	Cache  *DiskCache
	// OnError, if set, observes cache read/write failures.
	OnError func(error)
}

func (c *Cached) Transform(src string, opts Options) (Result, error) {
	key := KeyFor(src, opts)
	if res, ok, err := c.Cache.Get(key); err != nil {
		c.report(err)
	} else if ok {
		return res, nil
	}

	res, err := c.Engine.Transform(src, opts)
	if err != nil {
		return Result{}, err
	}
	if err := c.Cache.Put(key, res); err != nil {
		c.report(err)
	}
	return res, nil
}

func (c *Cached) report(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
