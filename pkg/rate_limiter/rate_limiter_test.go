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

package rate_limiter

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(Opts{Limit: 1, Burst: 2, Mask4: 24})
	defer l.Close()

	now := time.Now()
	a := netip.MustParseAddr("192.168.1.1")
	sameNet := netip.MustParseAddr("192.168.1.200")
	other := netip.MustParseAddr("192.168.2.1")

	assert.True(t, l.allowAt(a, now))
	assert.True(t, l.allowAt(sameNet, now))
	assert.False(t, l.allowAt(a, now), "burst of the /24 is used up")
	assert.True(t, l.allowAt(other, now))
	assert.True(t, l.allowAt(a, now.Add(time.Second)), "one token refilled")

	// 4in6 addresses share the entry of the ipv4 address.
	assert.False(t, l.allowAt(netip.MustParseAddr("::ffff:192.168.1.1"), now.Add(time.Second)))

	assert.True(t, l.Allow(netip.Addr{}))
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_gc(t *testing.T) {
	l := NewLimiter(Opts{Limit: 10})
	defer l.Close()

	now := time.Now()
	l.allowAt(netip.MustParseAddr("2001:db8::1"), now)
	l.allowAt(netip.MustParseAddr("2001:db8::2"), now) // same /48
	l.allowAt(netip.MustParseAddr("10.0.0.1"), now.Add(time.Minute))
	assert.Equal(t, 2, l.Len())

	l.doGc(now.Add(time.Minute+time.Second), time.Minute)
	assert.Equal(t, 1, l.Len())
}

func TestOpts_init(t *testing.T) {
	opts := Opts{Limit: 0.5}
	opts.init()
	assert.Equal(t, 1, opts.Burst)
	assert.Equal(t, defaultMask4, opts.Mask4)
	assert.Equal(t, defaultMask6, opts.Mask6)

	opts = Opts{Limit: 20}
	opts.init()
	assert.Equal(t, 20, opts.Burst)
}

func BenchmarkLimiter_Allow(b *testing.B) {
	l := NewLimiter(Opts{Limit: 1e9})
	defer l.Close()
	addr := netip.MustParseAddr("10.0.0.1")
	for i := 0; i < b.N; i++ {
		l.Allow(addr)
	}
}

func TestOpts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Opts
		wantErr bool
	}{
		{"defaults", Opts{Limit: 10}, false},
		{"full", Opts{Limit: 0.5, Burst: 5, Mask4: 24, Mask6: 64}, false},
		{"max masks", Opts{Limit: 1, Mask4: 32, Mask6: 128}, false},
		{"zero limit", Opts{}, true},
		{"negative limit", Opts{Limit: -1}, true},
		{"negative burst", Opts{Limit: 1, Burst: -1}, true},
		{"mask4 too long", Opts{Limit: 1, Mask4: 33}, true},
		{"negative mask4", Opts{Limit: 1, Mask4: -1}, true},
		{"mask6 too long", Opts{Limit: 1, Mask6: 129}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
