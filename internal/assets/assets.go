// Package assets resolves model paths to bytes from loose files and GRF archives.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-stl/pkg/grf"
)

// Manager reads files from a data directory and a stack of GRF archives,
// caching what it has read. It implements stl.FileReader.
//
// Loose files in the data directory take precedence over archives.
// Archives are searched in reverse order (last added = highest priority).
type Manager struct {
	rootDir  string
	archives []*grf.Archive
	cache    *Cache
	log      *zap.Logger
	mu       sync.Mutex
}

// NewManager creates a manager rooted at rootDir. An empty rootDir resolves
// relative paths against the working directory.
func NewManager(rootDir string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		rootDir: rootDir,
		cache:   NewCache(),
		log:     log,
	}
}

// AddArchive opens a GRF archive and puts it on top of the search stack.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()

	m.log.Debug("added archive", zap.String("path", path), zap.Int("files", len(archive.List())))
	return nil
}

// ReadFile returns the contents of name. The returned slice may be shared
// with the cache and must not be modified.
func (m *Manager) ReadFile(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.readLoose(name)
	if err == nil {
		m.cache.Set(name, data)
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].ReadFile(name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	m.log.Debug("file not found", zap.String("name", name), zap.Int("archives", len(m.archives)))
	return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
}

func (m *Manager) readLoose(name string) ([]byte, error) {
	path := name
	if m.rootDir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(m.rootDir, name)
	}
	return os.ReadFile(path)
}

// Close closes all archives and drops the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear empties the cache and resets its statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
