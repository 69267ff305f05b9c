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

// Package cache defines the result cache used by lookups and builds
// its backends.
package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/cache/mem_cache"
	"github.com/IrineSistiana/pslookup/pkg/cache/redis_cache"
	"github.com/IrineSistiana/pslookup/pkg/utils"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Backend represents a cache backend.
// A cache error never fails a lookup, so Backend does not return errors.
// Implementations log and handle them. All operations are expected to
// return quickly, e.g. within 50 ms.
type Backend interface {
	// Get returns the value of key. v must not be modified by the caller.
	Get(key string) (v []byte, storedTime, expirationTime time.Time)

	// Store stores a copy of v. If expirationTime has passed, Store is a noop.
	Store(key string, v []byte, storedTime, expirationTime time.Time)

	Len() int

	// Close closes the backend. Get and Store become noops.
	io.Closer
}

type Config struct {
	// Size is the max number of entries of the in memory cache.
	// Zero disables the cache unless Redis is set.
	Size int `yaml:"size"`

	// TTL in seconds. Default is 3600.
	TTL int `yaml:"ttl"`

	// Redis is a redis URL, e.g. "redis://localhost:6379/0". If set,
	// results are cached in redis instead of memory.
	Redis string `yaml:"redis"`

	// RedisTimeout in milliseconds. Default is 50.
	RedisTimeout int `yaml:"redis_timeout"`
}

const (
	defaultTTL          = time.Hour
	defaultRedisTimeout = 50 * time.Millisecond
)

// TTLOf returns the configured TTL.
func (c *Config) TTLOf() time.Duration {
	ttl := time.Duration(c.TTL) * time.Second
	utils.SetDefaultNum(&ttl, defaultTTL)
	return ttl
}

// New builds the backend of cfg. It returns nil if caching is disabled.
func New(cfg Config, logger *zap.Logger) (Backend, error) {
	switch {
	case len(cfg.Redis) > 0:
		opt, err := redis.ParseURL(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url, %w", err)
		}
		timeout := time.Duration(cfg.RedisTimeout) * time.Millisecond
		utils.SetDefaultNum(&timeout, defaultRedisTimeout)
		opt.MaxRetries = -1
		client := redis.NewClient(opt)
		return redis_cache.NewRedisCache(redis_cache.RedisCacheOpts{
			Client:        client,
			ClientCloser:  client,
			ClientTimeout: timeout,
			Logger:        logger,
		})
	case cfg.Size > 0:
		return mem_cache.NewMemCache(cfg.Size, 0), nil
	default:
		return nil, nil
	}
}
