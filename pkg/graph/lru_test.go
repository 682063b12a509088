package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockCacheLoadsOnceWhileCached(t *testing.T) {
	loads := 0
	cache := newBlockCache(4, func(id BlockID) (int32, error) {
		loads++
		return id.BlockIndex, nil
	})

	for i := 0; i < 3; i++ {
		v, err := cache.get(NewBlockID(0, 7))
		require.NoError(t, err)
		assert.Equal(t, int32(7), v)
	}
	assert.Equal(t, 1, loads)

	hits, misses := cache.stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestBlockCacheEvictsLeastRecentlyUsed(t *testing.T) {
	loads := make(map[int32]int)
	cache := newBlockCache(2, func(id BlockID) (int32, error) {
		loads[id.BlockIndex]++
		return id.BlockIndex, nil
	})

	cache.get(NewBlockID(0, 1))
	cache.get(NewBlockID(0, 2))

	// touch 1 so 2 becomes the eviction victim
	cache.get(NewBlockID(0, 1))
	cache.get(NewBlockID(0, 3))

	cache.get(NewBlockID(0, 1))
	assert.Equal(t, 1, loads[1])

	cache.get(NewBlockID(0, 2))
	assert.Equal(t, 2, loads[2])
	assert.Equal(t, 2, cache.len())
}

func TestBlockCacheDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("read failed")
	fail := true
	cache := newBlockCache(4, func(id BlockID) (int32, error) {
		if fail {
			return 0, boom
		}
		return id.BlockIndex, nil
	})

	_, err := cache.get(NewBlockID(0, 1))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.len())

	fail = false
	v, err := cache.get(NewBlockID(0, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
}
