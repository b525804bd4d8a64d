// Package pattern provides a bounded cache of compiled regular expressions
// for rule matching.
package pattern

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized patterns.
const DefaultCacheSize = 512

// compiled is the memoized result of compiling one pattern string. Invalid
// patterns are cached too, so a bad rule does not recompile on every event.
type compiled struct {
	re  *regexp.Regexp
	err error
}

// Cache memoizes compiled patterns by exact pattern string, evicting the
// least-recently-used entry on overflow. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, compiled]
}

// NewCache creates a pattern cache holding up to size patterns. A size of
// zero or less falls back to DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, compiled](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Compile returns the compiled, anchored form of pattern. The pattern is
// wrapped so it must match the whole input, not a substring. An invalid
// pattern is returned as an error value, never a panic.
func (c *Cache) Compile(pattern string) (*regexp.Regexp, error) {
	if entry, ok := c.entries.Get(pattern); ok {
		return entry.re, entry.err
	}

	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		err = fmt.Errorf("invalid pattern %q: %w", pattern, err)
		c.entries.Add(pattern, compiled{err: err})
		return nil, err
	}

	c.entries.Add(pattern, compiled{re: re})
	return re, nil
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int {
	return c.entries.Len()
}
