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

package mem_cache

import (
	"time"

	"github.com/IrineSistiana/pslookup/pkg/lru"
	"github.com/IrineSistiana/pslookup/pkg/safe_close"
)

const (
	shardNum               = 64
	minSizePerShard        = 16
	defaultCleanerInterval = time.Minute
)

// MemCache is a sharded LRU cache that stores values in memory.
// It is safe for concurrent use.
type MemCache struct {
	sc  *safe_close.SafeClose
	lru *lru.ShardedLRU[*elem]
}

type elem struct {
	v              []byte
	storedTime     time.Time
	expirationTime time.Time
}

// NewMemCache returns a MemCache that holds about size entries.
// cleanerInterval is how often expired entries are removed, a default
// is used if it is <= 0.
func NewMemCache(size int, cleanerInterval time.Duration) *MemCache {
	sizePerShard := size / shardNum
	if sizePerShard < minSizePerShard {
		sizePerShard = minSizePerShard
	}
	if cleanerInterval <= 0 {
		cleanerInterval = defaultCleanerInterval
	}

	c := &MemCache{
		sc:  safe_close.NewSafeClose(),
		lru: lru.NewShardedLRU[*elem](shardNum, sizePerShard, nil),
	}
	c.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		ticker := time.NewTicker(cleanerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-closeSignal:
				return
			case now := <-ticker.C:
				c.lru.Clean(func(_ string, e *elem) bool {
					return e.expirationTime.Before(now)
				})
			}
		}
	})
	return c
}

// Close stops the cleaner. It always returns nil.
func (c *MemCache) Close() error {
	c.sc.Done()
	c.sc.CloseWait()
	return nil
}

func (c *MemCache) Get(key string) (v []byte, storedTime, expirationTime time.Time) {
	if c.sc.Closed() {
		return nil, time.Time{}, time.Time{}
	}
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, time.Time{}, time.Time{}
	}
	if e.expirationTime.Before(time.Now()) {
		c.lru.Del(key)
		return nil, time.Time{}, time.Time{}
	}
	return e.v, e.storedTime, e.expirationTime
}

func (c *MemCache) Store(key string, v []byte, storedTime, expirationTime time.Time) {
	if c.sc.Closed() || time.Now().After(expirationTime) {
		return
	}
	buf := make([]byte, len(v))
	copy(buf, v)
	c.lru.Add(key, &elem{
		v:              buf,
		storedTime:     storedTime,
		expirationTime: expirationTime,
	})
}

func (c *MemCache) Len() int {
	return c.lru.Len()
}
