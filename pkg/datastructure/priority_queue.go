package datastructure

import "errors"

type PriorityQueueNode[T comparable] struct {
	Rank float64
	Item T
}

func NewPriorityQueueNode[T comparable](rank float64, item T) PriorityQueueNode[T] {
	return PriorityQueueNode[T]{Rank: rank, Item: item}
}

// MinHeap binary heap priority queue with DecreaseKey, keyed by Item.
type MinHeap[T comparable] struct {
	heap    []PriorityQueueNode[T]
	indexOf map[T]int
}

func NewMinHeap[T comparable]() *MinHeap[T] {
	return &MinHeap[T]{
		heap:    make([]PriorityQueueNode[T], 0),
		indexOf: make(map[T]int),
	}
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) isEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / 2
}

func (h *MinHeap[T]) leftChild(index int) int {
	return 2*index + 1
}

func (h *MinHeap[T]) rightChild(index int) int {
	return 2*index + 2
}

func (h *MinHeap[T]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.indexOf[h.heap[i].Item] = i
	h.indexOf[h.heap[j].Item] = j
}

func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.heap[index].Rank < h.heap[h.parent(index)].Rank {
		h.swap(index, h.parent(index))
		index = h.parent(index)
	}
}

func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		smallest := index
		left := h.leftChild(index)
		right := h.rightChild(index)

		if left < len(h.heap) && h.heap[left].Rank < h.heap[smallest].Rank {
			smallest = left
		}
		if right < len(h.heap) && h.heap[right].Rank < h.heap[smallest].Rank {
			smallest = right
		}
		if smallest == index {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) GetMin() (PriorityQueueNode[T], bool) {
	if h.isEmpty() {
		return PriorityQueueNode[T]{}, false
	}
	return h.heap[0], true
}

func (h *MinHeap[T]) Insert(node PriorityQueueNode[T]) {
	h.heap = append(h.heap, node)
	h.indexOf[node.Item] = len(h.heap) - 1
	h.heapifyUp(len(h.heap) - 1)
}

func (h *MinHeap[T]) ExtractMin() (PriorityQueueNode[T], bool) {
	if h.isEmpty() {
		return PriorityQueueNode[T]{}, false
	}
	root := h.heap[0]
	last := len(h.heap) - 1
	h.swap(0, last)
	h.heap = h.heap[:last]
	delete(h.indexOf, root.Item)
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}
	return root, true
}

// DecreaseKey lowers the rank of node.Item already in the heap.
func (h *MinHeap[T]) DecreaseKey(node PriorityQueueNode[T]) error {
	index, ok := h.indexOf[node.Item]
	if !ok {
		return errors.New("priority queue: item not found")
	}
	if node.Rank > h.heap[index].Rank {
		return errors.New("priority queue: new rank is larger than current rank")
	}
	h.heap[index].Rank = node.Rank
	h.heapifyUp(index)
	return nil
}
