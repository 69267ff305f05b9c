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

package redis_cache

import (
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRedisValue(t *testing.T) {
	tests := []struct {
		name           string
		storedTime     time.Time
		expirationTime time.Time
		v              []byte
	}{
		{"test", time.Now(), time.Now().Add(time.Second), make([]byte, 1024)},
		{"empty", time.Now(), time.Now().Add(time.Hour), []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := packRedisValue(tt.storedTime, tt.expirationTime, tt.v)
			storedTime, expirationTime, v, err := unpackRedisValue(b)
			require.NoError(t, err)
			assert.Equal(t, tt.storedTime.Unix(), storedTime.Unix())
			assert.Equal(t, tt.expirationTime.Unix(), expirationTime.Unix())
			assert.Equal(t, tt.v, v)
		})
	}

	_, _, _, err := unpackRedisValue([]byte{0xff})
	assert.Error(t, err)
	_, _, _, err = unpackRedisValue(nil)
	assert.Error(t, err)
}

func TestRedisCache_nilClient(t *testing.T) {
	_, err := NewRedisCache(RedisCacheOpts{})
	assert.Error(t, err)
}

// Needs a running redis, e.g. PSLOOKUP_TEST_REDIS=redis://127.0.0.1:6379/15.
func TestRedisCache(t *testing.T) {
	u := os.Getenv("PSLOOKUP_TEST_REDIS")
	if len(u) == 0 {
		t.Skip("PSLOOKUP_TEST_REDIS is not set")
	}
	opt, err := redis.ParseURL(u)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	c, err := NewRedisCache(RedisCacheOpts{
		Client:        client,
		ClientCloser:  client,
		ClientTimeout: time.Second,
		Logger:        zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	defer c.Close()

	now := time.Now()
	c.Store("pslookup_test_key", []byte("v"), now, now.Add(time.Minute))
	v, _, expirationTime := c.Get("pslookup_test_key")
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, now.Add(time.Minute).Unix(), expirationTime.Unix())
	assert.Greater(t, c.Len(), 0)
}
