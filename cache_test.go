package pdfbook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// TestDirCache - Paths, round trips and atomic replacement
// ---------------------------------------------------------------------------

func TestDirCache(t *testing.T) {
	t.Parallel()

	workdir := t.TempDir()
	c, err := NewDirCache(workdir)
	if err != nil {
		t.Fatalf("NewDirCache() error = %v", err)
	}
	if c.Dir() != filepath.Join(workdir, cacheDirName) {
		t.Errorf("Dir() = %s", c.Dir())
	}

	key := "https://docs.google.com/document/d/abc/export?format=pdf"
	if _, ok := c.Get(key); ok {
		t.Fatal("Get() hit on an empty cache")
	}

	if err := c.Put(key, []byte("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put(key, []byte("second")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != "second" {
		t.Errorf("Get() = %q, %v, want second", got, ok)
	}

	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("cache dir holds %d files, want 1", len(entries))
	}
}

func TestDirCache_Path(t *testing.T) {
	t.Parallel()

	c := &DirCache{dir: "/cache"}

	a := c.Path("https://example.com/a.pdf")
	if a != c.Path("https://example.com/a.pdf") {
		t.Error("Path() is not deterministic")
	}
	if a == c.Path("https://example.com/a.pdf?x=1") {
		t.Error("distinct keys share a path")
	}
	if filepath.Dir(a) != "/cache" {
		t.Errorf("Path() = %s, outside the cache dir", a)
	}
	if !strings.HasSuffix(a, ".pdf") {
		t.Errorf("Path() = %s, want .pdf suffix", a)
	}
	if strings.Contains(filepath.Base(a), "/") || strings.Contains(filepath.Base(a), "..") {
		t.Errorf("Path() = %s, unsafe base name", a)
	}
}

func TestDirCache_EmptyFileIsMiss(t *testing.T) {
	t.Parallel()

	c, err := NewDirCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := "https://example.com/empty.pdf"
	if err := os.WriteFile(c.Path(key), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("Get() hit on an empty file")
	}
}

func TestDirCache_ConcurrentKeys(t *testing.T) {
	t.Parallel()

	c, err := NewDirCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	links := poolLinks(16)
	var wg sync.WaitGroup
	for _, l := range links {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if err := c.Put(key, []byte(key)); err != nil {
				t.Errorf("Put(%s) error = %v", key, err)
			}
		}(l.NormalizedURL)
	}
	wg.Wait()

	for _, l := range links {
		got, ok := c.Get(l.NormalizedURL)
		if !ok || string(got) != l.NormalizedURL {
			t.Errorf("Get(%s) = %q, %v", l.NormalizedURL, got, ok)
		}
	}
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	data := []byte("%PDF-1.4")
	if err := c.Put("k", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data[0] = 'X'

	got, ok := c.Get("k")
	if !ok || !bytes.Equal(got, []byte("%PDF-1.4")) {
		t.Fatalf("Get() = %q, %v, stored bytes were not copied", got, ok)
	}
	got[1] = 'Y'
	again, _ := c.Get("k")
	if !bytes.Equal(again, []byte("%PDF-1.4")) {
		t.Errorf("Get() returned shared bytes: %q", again)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) hit")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
