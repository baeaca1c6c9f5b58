package grpcdecode

import (
	"context"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
)

// SchemaCache memoizes compiled Schemas by their proto file set, so a long
// monitoring session doesn't recompile the same .proto files on every new
// gRPC connection that happens to target the same service.
type SchemaCache struct {
	mu          sync.Mutex
	cache       *lru.Cache
	importPaths []string
}

// NewSchemaCache returns a cache holding up to maxEntries compiled
// schemas, evicting least-recently-used entries beyond that.
func NewSchemaCache(importPaths []string, maxEntries int) *SchemaCache {
	return &SchemaCache{cache: lru.New(maxEntries), importPaths: importPaths}
}

// Get returns the Schema for protoFiles, compiling and caching it on first
// use.
func (c *SchemaCache) Get(ctx context.Context, protoFiles []string) (*Schema, error) {
	key := schemaCacheKey(protoFiles)

	c.mu.Lock()
	if v, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return v.(*Schema), nil
	}
	c.mu.Unlock()

	schema, err := CompileSchema(ctx, c.importPaths, protoFiles)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.Add(key, schema)
	c.mu.Unlock()

	return schema, nil
}

func schemaCacheKey(protoFiles []string) string {
	return strings.Join(protoFiles, "\x00")
}
