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
	"context"
	"errors"
	"io"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/utils"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

type RedisCacheOpts struct {
	// Client cannot be nil.
	Client redis.Cmdable

	// ClientCloser closes Client when RedisCache.Close is called.
	// Optional.
	ClientCloser io.Closer

	// ClientTimeout is the timeout of each redis command.
	// Default is 50ms.
	ClientTimeout time.Duration

	// Logger is the *zap.Logger for this RedisCache.
	// A nil Logger will disable logging.
	Logger *zap.Logger
}

func (opts *RedisCacheOpts) init() error {
	if opts.Client == nil {
		return errors.New("nil client")
	}
	utils.SetDefaultNum(&opts.ClientTimeout, 50*time.Millisecond)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return nil
}

// RedisCache stores values in redis. On a redis error, the client is
// disabled and pinged in the background until redis is back.
type RedisCache struct {
	opts     RedisCacheOpts
	disabled atomic.Bool
}

func NewRedisCache(opts RedisCacheOpts) (*RedisCache, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}
	return &RedisCache{opts: opts}, nil
}

const (
	pingTimeout    = 500 * time.Millisecond
	initialBackoff = 100 * time.Millisecond
	maxPingBackoff = 30 * time.Second
)

func (r *RedisCache) disableClient() {
	if !r.disabled.CompareAndSwap(false, true) {
		return
	}
	r.opts.Logger.Warn("redis temporarily disabled")
	go func() {
		backoff := initialBackoff
		for {
			time.Sleep(backoff)
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			err := r.opts.Client.Ping(ctx).Err()
			cancel()
			if err == nil {
				r.disabled.Store(false)
				r.opts.Logger.Info("redis is back")
				return
			}
			backoff += time.Second + time.Duration(rand.Intn(1000))*time.Millisecond
			if backoff > maxPingBackoff {
				backoff = maxPingBackoff
			}
			r.opts.Logger.Warn("redis ping failed", zap.Error(err), zap.Duration("next_ping", backoff))
		}
	}()
}

func (r *RedisCache) Get(key string) (v []byte, storedTime, expirationTime time.Time) {
	if r.disabled.Load() {
		return nil, time.Time{}, time.Time{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.ClientTimeout)
	defer cancel()
	b, err := r.opts.Client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.opts.Logger.Warn("redis get", zap.Error(err))
			r.disableClient()
		}
		return nil, time.Time{}, time.Time{}
	}

	storedTime, expirationTime, v, err = unpackRedisValue(b)
	if err != nil {
		r.opts.Logger.Warn("redis data unpack error", zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, time.Time{}
	}
	return v, storedTime, expirationTime
}

func (r *RedisCache) Store(key string, v []byte, storedTime, expirationTime time.Time) {
	if r.disabled.Load() {
		return
	}

	// Zero ttl means no expiration for redis.
	ttl := time.Until(expirationTime)
	if ttl <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.ClientTimeout)
	defer cancel()
	if err := r.opts.Client.Set(ctx, key, packRedisValue(storedTime, expirationTime, v), ttl).Err(); err != nil {
		r.opts.Logger.Warn("redis set", zap.Error(err))
		r.disableClient()
	}
}

// Close closes the redis client.
func (r *RedisCache) Close() error {
	if f := r.opts.ClientCloser; f != nil {
		return f.Close()
	}
	return nil
}

// Len returns the number of keys of the redis db.
func (r *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.ClientTimeout)
	defer cancel()
	i, err := r.opts.Client.DBSize(ctx).Result()
	if err != nil {
		r.opts.Logger.Warn("redis dbsize", zap.Error(err))
		return 0
	}
	return int(i)
}

// Field numbers of the redis value.
const (
	fieldStoredTime     protowire.Number = 1
	fieldExpirationTime protowire.Number = 2
	fieldValue          protowire.Number = 3
)

func packRedisValue(storedTime, expirationTime time.Time, v []byte) []byte {
	b := make([]byte, 0, 24+len(v))
	b = protowire.AppendTag(b, fieldStoredTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(storedTime.Unix()))
	b = protowire.AppendTag(b, fieldExpirationTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(expirationTime.Unix()))
	b = protowire.AppendTag(b, fieldValue, protowire.BytesType)
	b = protowire.AppendBytes(b, v)
	return b
}

func unpackRedisValue(b []byte) (storedTime, expirationTime time.Time, v []byte, err error) {
	var seen int
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return time.Time{}, time.Time{}, nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldStoredTime && typ == protowire.VarintType:
			u, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return time.Time{}, time.Time{}, nil, protowire.ParseError(n)
			}
			storedTime = time.Unix(int64(u), 0)
			b = b[n:]
			seen++
		case num == fieldExpirationTime && typ == protowire.VarintType:
			u, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return time.Time{}, time.Time{}, nil, protowire.ParseError(n)
			}
			expirationTime = time.Unix(int64(u), 0)
			b = b[n:]
			seen++
		case num == fieldValue && typ == protowire.BytesType:
			bs, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return time.Time{}, time.Time{}, nil, protowire.ParseError(n)
			}
			v = bs
			b = b[n:]
			seen++
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return time.Time{}, time.Time{}, nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if seen < 3 {
		return time.Time{}, time.Time{}, nil, errors.New("incomplete redis value")
	}
	return storedTime, expirationTime, v, nil
}
