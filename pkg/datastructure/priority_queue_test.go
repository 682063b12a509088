package datastructure

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityQueueOrdering(t *testing.T) {
	pq := NewMinHeap[int32]()

	for i := 0; i < 10000; i++ {
		item := PriorityQueueNode[int32]{Rank: float64(rand.IntN(10000)), Item: int32(i)}
		pq.Insert(item)
	}

	prevItem, ok := pq.ExtractMin()
	require.True(t, ok)
	for i := 1; i < 10000; i++ {
		item, ok := pq.ExtractMin()
		require.True(t, ok)
		require.LessOrEqual(t, prevItem.Rank, item.Rank)
		prevItem = item
	}

	_, ok = pq.ExtractMin()
	require.False(t, ok)
}

func TestPriorityQueueDecreaseKey(t *testing.T) {
	pq := NewMinHeap[int32]()

	items := make([]PriorityQueueNode[int32], 1000)
	for i := 0; i < 1000; i++ {
		items[i] = PriorityQueueNode[int32]{Rank: float64(10000 + rand.IntN(100000)), Item: int32(i)}
		pq.Insert(items[i])
	}

	for i := 0; i < 1000; i++ {
		items[i].Rank = float64(rand.IntN(10000))
		err := pq.DecreaseKey(items[i])
		require.NoError(t, err)
	}

	prevItem, _ := pq.ExtractMin()
	for i := 1; i < 1000; i++ {
		item, ok := pq.ExtractMin()
		require.True(t, ok)
		require.LessOrEqual(t, prevItem.Rank, item.Rank)
		prevItem = item
	}
}

func TestPriorityQueueDecreaseKeyMissingItem(t *testing.T) {
	pq := NewMinHeap[int32]()
	err := pq.DecreaseKey(PriorityQueueNode[int32]{Rank: 1, Item: 42})
	require.Error(t, err)
}
