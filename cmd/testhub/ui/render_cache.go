package ui

import (
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/charmbracelet/glamour"
)

// RenderCache keeps rendered markdown keyed by body, style and wrap width.
// Entries are evicted oldest-first once maxSize is reached.
type RenderCache struct {
	mu      sync.Mutex
	entries map[uint64]string
	order   []uint64
	maxSize int
	hits    int
	misses  int
}

// NewRenderCache creates a new render cache with the specified max size.
func NewRenderCache(maxSize int) *RenderCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &RenderCache{
		entries: make(map[uint64]string),
		maxSize: maxSize,
	}
}

// DefaultRenderCache is shared by the static pages.
var DefaultRenderCache = NewRenderCache(64)

// ComputeKey hashes the inputs that determine glamour output.
func ComputeKey(body, style string, width int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(style))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return h.Sum64()
}

// Get retrieves cached content if available.
func (rc *RenderCache) Get(key uint64) (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out, ok := rc.entries[key]
	if ok {
		rc.hits++
	} else {
		rc.misses++
	}
	return out, ok
}

// Set stores rendered content in the cache.
func (rc *RenderCache) Set(key uint64, content string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, ok := rc.entries[key]; !ok {
		rc.order = append(rc.order, key)
	}
	rc.entries[key] = content
	for len(rc.order) > rc.maxSize {
		oldest := rc.order[0]
		rc.order = rc.order[1:]
		delete(rc.entries, oldest)
	}
}

// Len returns the number of cached entries.
func (rc *RenderCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// Stats returns hit and miss counts.
func (rc *RenderCache) Stats() (hits, misses int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.hits, rc.misses
}

// RenderMarkdown renders body with glamour, reusing a cached result when the
// same body, style and width were rendered before. Failures are not cached.
func (rc *RenderCache) RenderMarkdown(body, style string, width int) (string, error) {
	key := ComputeKey(body, style, width)
	if out, ok := rc.Get(key); ok {
		return out, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := renderer.Render(body)
	if err != nil {
		return "", err
	}
	rc.Set(key, out)
	return out, nil
}
