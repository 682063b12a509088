package graph

import "container/list"

// blockCache is a fixed-capacity LRU over decoded blocks of one kind. A
// miss invokes the loader and the loaded block replaces the least recently
// used entry once the cache is full. The cache itself is not safe for
// concurrent use; RoutingGraph serializes access under its lock.
type blockCache[T any] struct {
	capacity  int
	loader    func(BlockID) (T, error)
	evictList *list.List
	items     map[BlockID]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry[T any] struct {
	key   BlockID
	value T
}

func newBlockCache[T any](capacity int, loader func(BlockID) (T, error)) *blockCache[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &blockCache[T]{
		capacity:  capacity,
		loader:    loader,
		evictList: list.New(),
		items:     make(map[BlockID]*list.Element, capacity),
	}
}

func (c *blockCache[T]) get(key BlockID) (T, error) {
	if elem, ok := c.items[key]; ok {
		c.hits++
		c.evictList.MoveToFront(elem)
		return elem.Value.(*cacheEntry[T]).value, nil
	}

	c.misses++
	value, err := c.loader(key)
	if err != nil {
		var zero T
		return zero, err
	}

	if c.evictList.Len() >= c.capacity {
		oldest := c.evictList.Back()
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry[T]).key)
	}
	c.items[key] = c.evictList.PushFront(&cacheEntry[T]{key: key, value: value})
	return value, nil
}

func (c *blockCache[T]) len() int {
	return c.evictList.Len()
}

func (c *blockCache[T]) stats() (hits, misses uint64) {
	return c.hits, c.misses
}
