/*
 * Copyright (C) 2020-2022, IrineSistiana
 *
 * This file is part of pslookup.
 *
 * pslookup is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * pslookup is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package lru implements least recently used caches.
package lru

import (
	"fmt"
)

// LRU is a fixed size least recently used cache. It is not safe for
// concurrent use, see ShardedLRU.
type LRU[K comparable, V any] struct {
	maxSize int
	onEvict func(key K, v V)

	// root is the sentinel of a circular list. root.next is the oldest
	// entry, root.prev the most recently used one.
	root node[K, V]
	m    map[K]*node[K, V]
}

type node[K comparable, V any] struct {
	prev, next *node[K, V]
	key        K
	v          V
}

func NewLRU[K comparable, V any](maxSize int, onEvict func(key K, v V)) *LRU[K, V] {
	if maxSize <= 0 {
		panic(fmt.Sprintf("LRU: invalid max size: %d", maxSize))
	}
	q := &LRU[K, V]{
		maxSize: maxSize,
		onEvict: onEvict,
		m:       make(map[K]*node[K, V]),
	}
	q.root.prev = &q.root
	q.root.next = &q.root
	return q
}

func (q *LRU[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

func (q *LRU[K, V]) pushBack(n *node[K, V]) {
	last := q.root.prev
	n.prev = last
	n.next = &q.root
	last.next = n
	q.root.prev = n
}

// Add adds or updates key. The oldest entries are evicted if q is full.
func (q *LRU[K, V]) Add(key K, v V) {
	if n, ok := q.m[key]; ok {
		n.v = v
		q.unlink(n)
		q.pushBack(n)
		return
	}

	for len(q.m) >= q.maxSize {
		key, v, _ := q.PopOldest()
		if q.onEvict != nil {
			q.onEvict(key, v)
		}
	}

	n := &node[K, V]{key: key, v: v}
	q.m[key] = n
	q.pushBack(n)
}

// Del removes key. onEvict is called if key exists.
func (q *LRU[K, V]) Del(key K) {
	if n, ok := q.m[key]; ok {
		q.del(n)
	}
}

func (q *LRU[K, V]) del(n *node[K, V]) {
	q.unlink(n)
	delete(q.m, n.key)
	if q.onEvict != nil {
		q.onEvict(n.key, n.v)
	}
}

// PopOldest removes and returns the least recently used entry.
// onEvict is not called.
func (q *LRU[K, V]) PopOldest() (key K, v V, ok bool) {
	n := q.root.next
	if n == &q.root {
		return key, v, false
	}
	q.unlink(n)
	delete(q.m, n.key)
	return n.key, n.v, true
}

// Clean removes all entries that f returns true for.
func (q *LRU[K, V]) Clean(f func(key K, v V) (remove bool)) (removed int) {
	for n := q.root.next; n != &q.root; {
		next := n.next
		if f(n.key, n.v) {
			q.del(n)
			removed++
		}
		n = next
	}
	return removed
}

// Get returns the value of key and marks it as recently used.
func (q *LRU[K, V]) Get(key K) (v V, ok bool) {
	n, ok := q.m[key]
	if !ok {
		return v, false
	}
	q.unlink(n)
	q.pushBack(n)
	return n.v, true
}

func (q *LRU[K, V]) Len() int {
	return len(q.m)
}
