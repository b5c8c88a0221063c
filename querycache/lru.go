package querycache

import (
	"container/list"
)

// lruIndex orders entries by recency. It is not synchronised; Cache holds
// its lock around every call.
type lruIndex struct {
	size      int
	evictList *list.List
	items     map[string]*list.Element
}

// newLRUIndex creates an index bounded to size entries (0 means unbounded)
func newLRUIndex(size int) *lruIndex {
	return &lruIndex{
		size:      size,
		evictList: list.New(),
		items:     make(map[string]*list.Element),
	}
}

// get returns the entry and marks it most recently used
func (l *lruIndex) get(key string) (*entry, bool) {
	node, exists := l.items[key]
	if !exists {
		return nil, false
	}
	l.evictList.MoveToFront(node)
	return node.Value.(*entry), true
}

// put adds or replaces an entry, returning whatever had to be evicted
func (l *lruIndex) put(e *entry) (evicted *entry) {
	if node, exists := l.items[e.key]; exists {
		l.evictList.MoveToFront(node)
		node.Value = e
		return nil
	}

	node := l.evictList.PushFront(e)
	l.items[e.key] = node

	if l.size > 0 && l.evictList.Len() > l.size {
		return l.removeOldest()
	}
	return nil
}

// removeOldest removes the least recently used entry
func (l *lruIndex) removeOldest() *entry {
	node := l.evictList.Back()
	if node == nil {
		return nil
	}
	l.evictList.Remove(node)
	e := node.Value.(*entry)
	delete(l.items, e.key)
	return e
}

// each visits entries from most to least recently used
func (l *lruIndex) each(fn func(*entry)) {
	for node := l.evictList.Front(); node != nil; node = node.Next() {
		fn(node.Value.(*entry))
	}
}

// clear removes all entries
func (l *lruIndex) clear() {
	l.items = make(map[string]*list.Element)
	l.evictList.Init()
}

// len returns the number of entries
func (l *lruIndex) len() int {
	return l.evictList.Len()
}
