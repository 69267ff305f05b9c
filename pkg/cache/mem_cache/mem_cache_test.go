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
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCache(t *testing.T) {
	c := NewMemCache(1024, 0)
	defer c.Close()

	now := time.Now()
	for i := 0; i < 128; i++ {
		key := strconv.Itoa(i)
		v := []byte(key)
		c.Store(key, v, now, now.Add(time.Minute))
		v[0] = 'x'

		got, storedTime, expirationTime := c.Get(key)
		require.Equal(t, key, string(got))
		assert.True(t, storedTime.Equal(now))
		assert.True(t, expirationTime.Equal(now.Add(time.Minute)))
	}

	// Overflow keeps the cache bounded.
	for i := 0; i < 1024*8; i++ {
		key := strconv.Itoa(i)
		c.Store(key, []byte(key), now, now.Add(time.Minute))
	}
	assert.LessOrEqual(t, c.Len(), 1024)

	// Expired values are never stored nor returned.
	c.Store("expired", []byte("v"), now, now.Add(-time.Second))
	v, _, _ := c.Get("expired")
	assert.Nil(t, v)
}

func TestMemCache_cleaner(t *testing.T) {
	c := NewMemCache(1024, time.Millisecond*10)
	defer c.Close()
	now := time.Now()
	for i := 0; i < 64; i++ {
		c.Store(strconv.Itoa(i), []byte{1}, now, now.Add(time.Millisecond*10))
	}
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, time.Millisecond*10)
}

func TestMemCache_closed(t *testing.T) {
	c := NewMemCache(1024, 0)
	now := time.Now()
	c.Store("k", []byte("v"), now, now.Add(time.Minute))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	v, _, _ := c.Get("k")
	assert.Nil(t, v)
}

func TestMemCache_race(t *testing.T) {
	c := NewMemCache(1024, time.Millisecond)
	defer c.Close()

	wg := sync.WaitGroup{}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 256; i++ {
				key := strconv.Itoa(i)
				c.Store(key, []byte(key), time.Now(), time.Now().Add(time.Minute))
				_, _, _ = c.Get(key)
			}
		}()
	}
	wg.Wait()
}
