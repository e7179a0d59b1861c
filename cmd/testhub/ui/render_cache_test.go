package ui

import (
	"strings"
	"testing"
)

func TestRenderCacheRenderMarkdown(t *testing.T) {
	cache := NewRenderCache(4)

	first, err := cache.RenderMarkdown("# Hello", "light", 40)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(plain(first), "Hello") {
		t.Fatalf("expected rendered heading, got %q", first)
	}

	second, err := cache.RenderMarkdown("# Hello", "light", 40)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached output to match")
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}

	if _, err := cache.RenderMarkdown("# Hello", "light", 60); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected width to be part of the key, got %d entries", cache.Len())
	}
}

func TestRenderCacheEvictsOldest(t *testing.T) {
	cache := NewRenderCache(2)
	cache.Set(1, "one")
	cache.Set(2, "two")
	cache.Set(3, "three")

	if _, ok := cache.Get(1); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if got, ok := cache.Get(3); !ok || got != "three" {
		t.Fatalf("expected newest entry to be kept")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}

func TestComputeKeyDistinguishesInputs(t *testing.T) {
	base := ComputeKey("body", "light", 80)
	if base == ComputeKey("body", "dark", 80) {
		t.Fatalf("expected style to change the key")
	}
	if base == ComputeKey("body", "light", 81) {
		t.Fatalf("expected width to change the key")
	}
	if base != ComputeKey("body", "light", 80) {
		t.Fatalf("expected identical inputs to share a key")
	}
}
