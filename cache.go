package pdfbook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alnah/go-pdfbook/internal/fileutil"
)

// Cache stores fetched PDFs keyed by normalized URL.
//
// Validity rule: an entry is used only if it exists and parses as a PDF with
// at least one page. The Fetcher checks this on every hit and fetches again
// when a cached entry is unusable. Entries never expire.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, pdf []byte) error
}

// Compile-time interface checks.
var (
	_ Cache = (*DirCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)

// cacheDirName is the cache subdirectory of a workdir.
const cacheDirName = "downloads"

// keyHashLength is the number of hex digits of the key hash in file names.
const keyHashLength = 16

// DirCache keeps one file per key under <workdir>/downloads. The file name
// is derived from the key only, so concurrent fetches of distinct keys never
// write the same path, and writes are atomic.
type DirCache struct {
	dir string
}

// NewDirCache creates the cache directory under workdir if needed.
func NewDirCache(workdir string) (*DirCache, error) {
	dir := filepath.Join(workdir, cacheDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &DirCache{dir: dir}, nil
}

// Dir returns the directory holding cached files.
func (c *DirCache) Dir() string {
	return c.dir
}

// Path returns the file that holds key: <hash>-<readable label>.pdf.
func (c *DirCache) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])[:keyHashLength] + "-" + fileutil.SafeName(cacheLabel(key)) + ".pdf"
	return filepath.Join(c.dir, name)
}

// Get returns the cached bytes for key.
func (c *DirCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.Path(key))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Put stores pdf under key, replacing any previous entry atomically.
func (c *DirCache) Put(key string, pdf []byte) error {
	if err := fileutil.WriteFileAtomic(c.Path(key), pdf, 0o644); err != nil {
		return fmt.Errorf("caching %s: %w", key, err)
	}
	return nil
}

// cacheLabel makes a human readable hint from a URL: host and path.
func cacheLabel(key string) string {
	u, err := url.Parse(key)
	if err != nil || u.Host == "" {
		return key
	}
	return u.Host + u.Path
}

// MemoryCache is an in-process Cache, suited to tests and long-running
// library users that manage their own persistence.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an empty MemoryCache without expiry.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns a copy of the cached bytes for key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Put stores a copy of pdf under key.
func (c *MemoryCache) Put(key string, pdf []byte) error {
	c.items.Set(key, bytes.Clone(pdf), gocache.NoExpiration)
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
