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

package lru

import (
	"hash/maphash"
	"sync"
)

// ShardedLRU is a concurrent LRU with string keys. Keys are spread over
// shards by hash, each shard has its own lock.
type ShardedLRU[V any] struct {
	seed   maphash.Seed
	shards []*shard[V]
}

type shard[V any] struct {
	sync.Mutex
	l *LRU[string, V]
}

func NewShardedLRU[V any](shardNum, maxSizePerShard int, onEvict func(key string, v V)) *ShardedLRU[V] {
	if shardNum <= 0 {
		shardNum = 1
	}
	c := &ShardedLRU[V]{
		seed:   maphash.MakeSeed(),
		shards: make([]*shard[V], shardNum),
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{l: NewLRU[string, V](maxSizePerShard, onEvict)}
	}
	return c
}

func (c *ShardedLRU[V]) shardOf(key string) *shard[V] {
	h := maphash.String(c.seed, key)
	return c.shards[h%uint64(len(c.shards))]
}

func (c *ShardedLRU[V]) Add(key string, v V) {
	s := c.shardOf(key)
	s.Lock()
	s.l.Add(key, v)
	s.Unlock()
}

func (c *ShardedLRU[V]) Del(key string) {
	s := c.shardOf(key)
	s.Lock()
	s.l.Del(key)
	s.Unlock()
}

func (c *ShardedLRU[V]) Get(key string) (v V, ok bool) {
	s := c.shardOf(key)
	s.Lock()
	v, ok = s.l.Get(key)
	s.Unlock()
	return v, ok
}

// Clean runs LRU.Clean on every shard.
func (c *ShardedLRU[V]) Clean(f func(key string, v V) (remove bool)) (removed int) {
	for _, s := range c.shards {
		s.Lock()
		removed += s.l.Clean(f)
		s.Unlock()
	}
	return removed
}

func (c *ShardedLRU[V]) Len() int {
	sum := 0
	for _, s := range c.shards {
		s.Lock()
		sum += s.l.Len()
		s.Unlock()
	}
	return sum
}
