package storage

import (
	"sort"
	"strings"
	"sync"
)

// Cache buffers writes on top of a parent Database. Nothing reaches the
// parent until Write is called, which lets a failed invocation be dropped
// without leaving partial state behind.
type Cache struct {
	mu      sync.RWMutex
	parent  Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewCache returns an empty write cache over parent.
func NewCache(parent Database) *Cache {
	return &Cache{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (c *Cache) Put(key []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.deletes, k)
	c.writes[k] = append([]byte(nil), value...)
	return nil
}

func (c *Cache) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	k := string(key)
	if value, ok := c.writes[k]; ok {
		c.mu.RUnlock()
		return append([]byte(nil), value...), nil
	}
	if _, ok := c.deletes[k]; ok {
		c.mu.RUnlock()
		return nil, ErrNotFound
	}
	c.mu.RUnlock()
	return c.parent.Get(key)
}

func (c *Cache) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.writes, k)
	c.deletes[k] = struct{}{}
	return nil
}

// Iterate merges the buffered writes with the parent's view.
func (c *Cache) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	if err := c.parent.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	}); err != nil {
		return err
	}

	c.mu.RLock()
	for k := range c.deletes {
		delete(merged, k)
	}
	for k, v := range c.writes {
		if strings.HasPrefix(k, string(prefix)) {
			merged[k] = append([]byte(nil), v...)
		}
	}
	c.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return nil
		}
	}
	return nil
}

// Write flushes buffered changes into the parent and resets the cache.
// Parents implementing Batcher receive every change in one atomic batch.
func (c *Cache) Write() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]BatchOp, 0, len(c.deletes)+len(c.writes))
	for k := range c.deletes {
		ops = append(ops, BatchOp{Key: []byte(k), Delete: true})
	}
	keys := make([]string, 0, len(c.writes))
	for k := range c.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ops = append(ops, BatchOp{Key: []byte(k), Value: c.writes[k]})
	}

	if batcher, ok := c.parent.(Batcher); ok {
		if err := batcher.ApplyBatch(ops); err != nil {
			return err
		}
	} else {
		for _, op := range ops {
			var err error
			if op.Delete {
				err = c.parent.Delete(op.Key)
			} else {
				err = c.parent.Put(op.Key, op.Value)
			}
			if err != nil {
				return err
			}
		}
	}
	c.writes = make(map[string][]byte)
	c.deletes = make(map[string]struct{})
	return nil
}

// ApplyBatch buffers ops so a cache can sit under another cache.
func (c *Cache) ApplyBatch(ops []BatchOp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, op := range ops {
		k := string(op.Key)
		if op.Delete {
			delete(c.writes, k)
			c.deletes[k] = struct{}{}
			continue
		}
		delete(c.deletes, k)
		c.writes[k] = append([]byte(nil), op.Value...)
	}
	return nil
}

// Discard drops every buffered change.
func (c *Cache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = make(map[string][]byte)
	c.deletes = make(map[string]struct{})
}

// Close is a no-op; the parent owns the underlying handle.
func (c *Cache) Close() {}
