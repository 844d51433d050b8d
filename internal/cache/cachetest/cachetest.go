// Package cachetest provides cache helpers for tests.
package cachetest

import (
	"testing"

	"github.com/anle/alumnet/internal/cache"
)

// New creates an in-memory SQLiteCache with all migrations applied.
// It automatically closes the cache when the test completes.
func New(t *testing.T) *cache.SQLiteCache {
	t.Helper()

	c, err := cache.NewSQLiteCache(":memory:")
	if err != nil {
		t.Fatalf("creating test cache: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})

	return c
}
