package tle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCacheFile is the cache file name used when none is configured.
const DefaultCacheFile = "ephemeris_cache.txt"

// Cache persists the most recently fetched element text as one flat file.
type Cache struct {
	path string
}

// NewCache creates a Cache backed by the file at path.
func NewCache(path string) *Cache {
	if path == "" {
		path = DefaultCacheFile
	}
	return &Cache{path: path}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Write replaces the cache contents. The data is written to a temporary file
// in the same directory and renamed over the old one, so a reader never sees
// a half-written cache.
func (c *Cache) Write(data []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ephemeris-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Load reads the cache file. It returns the data and the file's modification
// time, which stands in for the time the data was fetched.
func (c *Cache) Load() ([]byte, time.Time, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, fmt.Errorf("no cache file at %s: %w", c.path, ErrUnavailable)
		}
		return nil, time.Time{}, fmt.Errorf("stat cache file: %w", err)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, info.ModTime(), nil
}
