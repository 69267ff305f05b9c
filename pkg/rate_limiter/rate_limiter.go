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

// Package rate_limiter limits the query rate of each client.
// Clients are grouped by address prefix.
package rate_limiter

import (
	"fmt"
	"math"
	"net/netip"
	"sync"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/safe_close"
	"github.com/IrineSistiana/pslookup/pkg/utils"
	"golang.org/x/time/rate"
)

const (
	tableShards = 32
	gcInterval  = time.Minute

	defaultMask4 = 32
	defaultMask6 = 48
)

type Opts struct {
	// Limit is the allowed queries per second of a client.
	Limit float64 `yaml:"limit"`

	// Burst is the bucket size. Default is int(Limit), at least 1.
	Burst int `yaml:"burst"`

	// Mask4 and Mask6 are the prefix lengths that group client
	// addresses. Defaults are 32 and 48.
	Mask4 int `yaml:"mask4"`
	Mask6 int `yaml:"mask6"`
}

// Validate checks opts. Zero values are valid, they are replaced by
// defaults. Limit must be greater than zero.
func (opts Opts) Validate() error {
	if !(opts.Limit > 0) {
		return fmt.Errorf("invalid limit %v, must be greater than 0", opts.Limit)
	}
	if !utils.CheckNumRange(opts.Burst, 0, math.MaxInt32) {
		return fmt.Errorf("invalid burst %d", opts.Burst)
	}
	if !utils.CheckNumRange(opts.Mask4, 0, 32) {
		return fmt.Errorf("invalid mask4 %d, must be within [0, 32]", opts.Mask4)
	}
	if !utils.CheckNumRange(opts.Mask6, 0, 128) {
		return fmt.Errorf("invalid mask6 %d, must be within [0, 128]", opts.Mask6)
	}
	return nil
}

func (opts *Opts) init() {
	utils.SetDefaultNum(&opts.Burst, int(opts.Limit))
	utils.SetDefaultNum(&opts.Burst, 1)
	utils.SetDefaultNum(&opts.Mask4, defaultMask4)
	utils.SetDefaultNum(&opts.Mask6, defaultMask6)
}

// Limiter is a per client token bucket limiter.
// Idle client entries are removed every gcInterval. If the token
// refill time (burst/limit) is longer than that, a client may get a
// full bucket earlier than expected.
type Limiter struct {
	opts Opts
	sc   *safe_close.SafeClose

	tables [tableShards]*tableShard
}

type tableShard struct {
	m     sync.Mutex
	table map[netip.Prefix]*limiterEntry
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a new client rate limiter.
// opts must pass Opts.Validate.
func NewLimiter(opts Opts) *Limiter {
	opts.init()
	l := &Limiter{
		opts: opts,
		sc:   safe_close.NewSafeClose(),
	}
	for i := range l.tables {
		l.tables[i] = &tableShard{table: make(map[netip.Prefix]*limiterEntry)}
	}

	l.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		ticker := time.NewTicker(gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-closeSignal:
				return
			case now := <-ticker.C:
				l.doGc(now, gcInterval)
			}
		}
	})
	return l
}

// Allow reports whether a query from addr can be served now.
// Queries without a valid addr are always allowed.
func (l *Limiter) Allow(addr netip.Addr) bool {
	return l.allowAt(addr, time.Now())
}

func (l *Limiter) allowAt(addr netip.Addr, now time.Time) bool {
	if !addr.IsValid() {
		return true
	}
	p := l.prefixOf(addr)
	shard := l.tables[shardIdx(p.Addr())]
	shard.m.Lock()
	e, ok := shard.table[p]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(rate.Limit(l.opts.Limit), l.opts.Burst)}
		shard.table[p] = e
	}
	e.lastSeen = now
	shard.m.Unlock()
	return e.l.AllowN(now, 1)
}

func (l *Limiter) prefixOf(addr netip.Addr) netip.Prefix {
	addr = addr.Unmap()
	bits := l.opts.Mask6
	if addr.Is4() {
		bits = l.opts.Mask4
	}
	p, err := addr.Prefix(bits)
	if err != nil { // mask out of range, use the whole address
		return netip.PrefixFrom(addr, addr.BitLen())
	}
	return p
}

func (l *Limiter) Close() error {
	l.sc.Done()
	l.sc.CloseWait()
	return nil
}

func (l *Limiter) doGc(now time.Time, maxIdle time.Duration) {
	for _, shard := range l.tables {
		shard.m.Lock()
		for p, e := range shard.table {
			if now.Sub(e.lastSeen) > maxIdle {
				delete(shard.table, p)
			}
		}
		shard.m.Unlock()
	}
}

// Len returns current number of entries in the Limiter.
func (l *Limiter) Len() int {
	n := 0
	for _, shard := range l.tables {
		shard.m.Lock()
		n += len(shard.table)
		shard.m.Unlock()
	}
	return n
}

func shardIdx(addr netip.Addr) int {
	var i byte
	for _, b := range addr.AsSlice() {
		i ^= b
	}
	return int(i % tableShards)
}
