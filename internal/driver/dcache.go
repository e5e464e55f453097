package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"tplcheck/internal/diag"
	"tplcheck/internal/project"
	"tplcheck/internal/source"
)

// Current schema version - increment when CachedBundle format changes
const cacheSchemaVersion uint16 = 1

// Cache stores the diagnostics of a checked bundle by key.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key project.Digest, out *CachedBundle) (bool, error)
	Put(key project.Digest, payload *CachedBundle) error
}

// CachedBundle is the portable result of checking one bundle. Spans refer to
// files by path so they can be rehydrated into a fresh FileSet.
type CachedBundle struct {
	Schema      uint16             `msgpack:"schema"`
	Path        string             `msgpack:"path"`
	Components  []string           `msgpack:"components"`
	Diagnostics []CachedDiagnostic `msgpack:"diagnostics"`
}

type CachedDiagnostic struct {
	Severity uint8        `msgpack:"sev"`
	Code     uint16       `msgpack:"code"`
	Message  string       `msgpack:"msg"`
	Primary  CachedSpan   `msgpack:"primary"`
	Notes    []CachedNote `msgpack:"notes,omitempty"`
}

type CachedSpan struct {
	Path  string `msgpack:"path"`
	Start uint32 `msgpack:"start"`
	End   uint32 `msgpack:"end"`
}

type CachedNote struct {
	Span CachedSpan `msgpack:"span"`
	Msg  string     `msgpack:"msg"`
}

// DiskCache keeps CachedBundle payloads on disk, one msgpack file per key.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt uses dir as the cache root.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "bundles", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *CachedBundle) error {
	if c == nil {
		return nil
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
	defer func() {
		// gone after a successful rename
		_ = os.Remove(tmp)
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload from the disk cache. Entries written
// with another schema version count as misses.
func (c *DiskCache) Get(key project.Digest, out *CachedBundle) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != cacheSchemaVersion {
		return false, nil
	}
	for _, d := range out.Diagnostics {
		if !diag.Severity(d.Severity).Valid() {
			return false, nil
		}
	}
	return true, nil
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

func cacheSpan(fs *source.FileSet, sp source.Span) CachedSpan {
	out := CachedSpan{Start: sp.Start, End: sp.End}
	if f := fs.Get(sp.File); f != nil {
		out.Path = f.Path
	}
	return out
}

// toCached converts diagnostics into their path-based form.
func toCached(path string, components []string, diags []diag.Diagnostic, fs *source.FileSet) *CachedBundle {
	payload := &CachedBundle{
		Schema:      cacheSchemaVersion,
		Path:        path,
		Components:  components,
		Diagnostics: make([]CachedDiagnostic, 0, len(diags)),
	}
	for _, d := range diags {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Primary:  cacheSpan(fs, d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Span: cacheSpan(fs, n.Span), Msg: n.Msg})
		}
		payload.Diagnostics = append(payload.Diagnostics, cd)
	}
	return payload
}

func restoreSpan(fs *source.FileSet, sp CachedSpan) source.Span {
	id, ok := fs.GetLatest(sp.Path)
	if !ok {
		id = fs.AddVirtual(sp.Path, nil)
	}
	return source.Span{File: id, Start: sp.Start, End: sp.End}
}

// fromCached rebuilds diagnostics against fs. Files unknown to fs are added
// as empty virtual files so the path still renders.
func fromCached(payload *CachedBundle, fs *source.FileSet) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(payload.Diagnostics))
	for _, cd := range payload.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), restoreSpan(fs, cd.Primary), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(restoreSpan(fs, n.Span), n.Msg)
		}
		out = append(out, d)
	}
	return out
}
