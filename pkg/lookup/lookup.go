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

// Package lookup serves public suffix lookups from the current list,
// with an optional result cache.
package lookup

import (
	"errors"
	"strings"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/cache"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/IrineSistiana/pslookup/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoList is returned if no list was loaded yet.
var ErrNoList = errors.New("no public suffix list loaded")

// Result is the outcome of a lookup.
type Result struct {
	Name   string            `json:"name"`
	Suffix string            `json:"suffix"`
	Domain string            `json:"domain,omitempty"`
	Type   publicsuffix.Type `json:"type"`
	Known  bool              `json:"known"`
}

// HasDomain reports whether the name has a registrable domain.
func (r Result) HasDomain() bool {
	return len(r.Domain) > 0
}

type Opts struct {
	// Holder provides the list. Required.
	Holder *publicsuffix.Holder

	// Cache is optional.
	Cache cache.Backend

	// CacheTTL is the TTL of cached results. Default is one hour.
	CacheTTL time.Duration

	// Metrics are registered here. Optional.
	Metrics *Metrics

	Logger *zap.Logger
}

func (opts *Opts) init() error {
	if opts.Holder == nil {
		return errors.New("nil holder")
	}
	utils.SetDefaultNum(&opts.CacheTTL, time.Hour)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return nil
}

type Service struct {
	opts Opts
	sf   singleflight.Group
}

func NewService(opts Opts) (*Service, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}
	return &Service{opts: opts}, nil
}

// Snapshot returns the list in use, nil if there is none.
func (s *Service) Snapshot() *publicsuffix.Snapshot {
	return s.opts.Holder.Load()
}

// Lookup finds the public suffix and the registrable domain of name.
// A name without registrable domain is not an error, the Domain of the
// result is empty.
func (s *Service) Lookup(name string) (Result, error) {
	start := time.Now()
	r, err := s.lookup(name)
	s.opts.Metrics.observe(r, err, time.Since(start))
	return r, err
}

func (s *Service) lookup(name string) (Result, error) {
	snap := s.opts.Holder.Load()
	if snap == nil {
		return Result{}, ErrNoList
	}

	var key string
	if c := s.opts.Cache; c != nil {
		key = cacheKey(snap, name)
		if v, _, _ := c.Get(key); v != nil {
			o, err := decodeOffsets(v, len(name))
			if err == nil {
				s.opts.Metrics.cacheHit()
				return resultOf(name, o), nil
			}
			s.opts.Logger.Warn("invalid cached value", zap.String("name", name), zap.Error(err))
		}
		s.opts.Metrics.cacheMiss()
	}

	// Concurrent lookups of the same name in the same list share one match.
	sfKey := key
	if len(sfKey) == 0 {
		sfKey = cacheKey(snap, name)
	}
	v, err, _ := s.sf.Do(sfKey, func() (any, error) {
		o, err := match(snap.List, name)
		if err != nil {
			return offsets{}, err
		}
		if c := s.opts.Cache; c != nil {
			now := time.Now()
			c.Store(key, encodeOffsets(o), now, now.Add(s.opts.CacheTTL))
		}
		return o, nil
	})
	if err != nil {
		return Result{}, err
	}
	return resultOf(name, v.(offsets)), nil
}

func match(l *publicsuffix.List, name string) (offsets, error) {
	d, err := l.Domain(name)
	if err == nil {
		return offsets{
			suffixStart: len(name) - len(d.Suffix().String()),
			domainStart: len(name) - len(d.String()),
			typ:         d.Type(),
		}, nil
	}
	if !errors.Is(err, publicsuffix.ErrNoRegistrableDomain) {
		return offsets{}, err
	}
	sfx, err := l.Suffix(name)
	if err != nil {
		return offsets{}, err
	}
	return offsets{
		suffixStart: len(name) - len(sfx.String()),
		domainStart: -1,
		typ:         sfx.Type(),
	}, nil
}

func resultOf(name string, o offsets) Result {
	r := Result{
		Name:   name,
		Suffix: name[o.suffixStart:],
		Type:   o.typ,
		Known:  o.typ != publicsuffix.TypeUnknown,
	}
	if o.domainStart >= 0 {
		r.Domain = name[o.domainStart:]
	}
	return r
}

// cacheKey binds name to the list content and the normalization options,
// so caches shared by instances with other lists never mix results.
func cacheKey(snap *publicsuffix.Snapshot, name string) string {
	opts := snap.List.Options()
	sb := new(strings.Builder)
	sb.Grow(len(snap.Fingerprint) + len(name) + 8)
	sb.WriteString("psl:")
	sb.WriteString(snap.Fingerprint)
	sb.WriteByte(':')
	sb.WriteByte(boolByte(opts.UnicodeFold))
	sb.WriteByte(boolByte(opts.Punycode))
	sb.WriteByte(':')
	sb.WriteString(name)
	return sb.String()
}

func boolByte(b bool) byte {
	if b {
		return '1'
	}
	return '0'
}
