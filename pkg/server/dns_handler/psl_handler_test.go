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

package dns_handler

import (
	"context"
	"net/netip"
	"testing"

	"github.com/IrineSistiana/pslookup/pkg/lookup"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/IrineSistiana/pslookup/pkg/server"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testList = `
com
uk
co.uk
// ===BEGIN PRIVATE DOMAINS===
github.io
`

func newTestHandler(t *testing.T, loadList bool) *PSLHandler {
	t.Helper()
	h := publicsuffix.NewHolder(publicsuffix.Options{Punycode: true})
	if loadList {
		require.NoError(t, h.Update([]byte(testList)))
	}
	s, err := lookup.NewService(lookup.Opts{Holder: h})
	require.NoError(t, err)
	handler, err := NewPSLHandler(PSLHandlerOpts{Looker: s, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return handler
}

func query(t *testing.T, h *PSLHandler, name string, qtype uint16) *dns.Msg {
	t.Helper()
	q := new(dns.Msg)
	q.SetQuestion(name, qtype)
	r, err := h.ServeDNS(context.Background(), q, server.QueryMeta{})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, q.Id, r.Id)
	return r
}

func txtOfMsg(t *testing.T, r *dns.Msg) []string {
	t.Helper()
	require.Len(t, r.Answer, 1)
	txt, ok := r.Answer[0].(*dns.TXT)
	require.True(t, ok)
	return txt.Txt
}

func TestPSLHandler_answers(t *testing.T) {
	h := newTestHandler(t, true)

	tests := []struct {
		qname string
		want  []string
	}{
		{"www.example.com.psl.", []string{"suffix=com", "domain=example.com", "type=icann"}},
		{"a.b.Example.CO.UK.psl.", []string{"suffix=CO.UK", "domain=Example.CO.UK", "type=icann"}},
		{"foo.github.io.PSL.", []string{"suffix=github.io", "domain=foo.github.io", "type=private"}},
		{"com.psl.", []string{"suffix=com", "type=icann"}},
		{"example.zz.psl.", []string{"suffix=zz", "domain=example.zz", "type=unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.qname, func(t *testing.T) {
			r := query(t, h, tt.qname, dns.TypeTXT)
			assert.Equal(t, dns.RcodeSuccess, r.Rcode)
			assert.True(t, r.Authoritative)
			assert.Equal(t, tt.want, txtOfMsg(t, r))
			assert.Equal(t, tt.qname, r.Answer[0].Header().Name)
			assert.Equal(t, uint32(defaultTTL), r.Answer[0].Header().Ttl)
		})
	}
}

func TestPSLHandler_rcodes(t *testing.T) {
	h := newTestHandler(t, true)

	tests := []struct {
		name      string
		qname     string
		qtype     uint16
		wantRcode int
	}{
		{"out of zone", "www.example.com.", dns.TypeTXT, dns.RcodeRefused},
		{"zone apex", "psl.", dns.TypeTXT, dns.RcodeSuccess},
		{"not txt", "www.example.com.psl.", dns.TypeA, dns.RcodeSuccess},
		{"encoding error", "\\255.example.com.psl.", dns.TypeTXT, dns.RcodeFormatError},
		{"ideographic full stop", "www\\227\\128\\130co.uk.psl.", dns.TypeTXT, dns.RcodeFormatError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := query(t, h, tt.qname, tt.qtype)
			assert.Equal(t, tt.wantRcode, r.Rcode)
			assert.Empty(t, r.Answer)
		})
	}

	noList := newTestHandler(t, false)
	r := query(t, noList, "www.example.com.psl.", dns.TypeTXT)
	assert.Equal(t, dns.RcodeServerFailure, r.Rcode)

	q := new(dns.Msg)
	q.Id = 1
	r, err := h.ServeDNS(context.Background(), q, server.QueryMeta{})
	require.NoError(t, err)
	assert.Equal(t, dns.RcodeFormatError, r.Rcode)
}

func TestPSLHandler_customZone(t *testing.T) {
	hd := publicsuffix.NewHolder(publicsuffix.Options{})
	require.NoError(t, hd.Update([]byte(testList)))
	s, err := lookup.NewService(lookup.Opts{Holder: hd})
	require.NoError(t, err)

	h, err := NewPSLHandler(PSLHandlerOpts{Looker: s, Zone: "Suffix.Example", TTL: 10})
	require.NoError(t, err)
	assert.Equal(t, "suffix.example.", h.Zone())

	r := query(t, h, "www.example.com.suffix.example.", dns.TypeTXT)
	assert.Equal(t, []string{"suffix=com", "domain=example.com", "type=icann"}, txtOfMsg(t, r))
	assert.Equal(t, uint32(10), r.Answer[0].Header().Ttl)

	r = query(t, h, "www.example.com.psl.", dns.TypeTXT)
	assert.Equal(t, dns.RcodeRefused, r.Rcode)

	_, err = NewPSLHandler(PSLHandlerOpts{})
	assert.Error(t, err)
}

func TestUnescapeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "example.com"},
		{"\\228\\184\\173.com", "中.com"},
		{"a\\.b.com", "a\\.b.com"},
		{"a\\-b", "a-b"},
		{"a\\", "a\\"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unescapeName(tt.in), tt.in)
	}
}

type denyAll struct{}

func (denyAll) Allow(netip.Addr) bool { return false }

func TestPSLHandler_limiter(t *testing.T) {
	h := newTestHandler(t, true)
	h.opts.Limiter = denyAll{}
	r := query(t, h, "www.example.com.psl.", dns.TypeTXT)
	assert.Equal(t, dns.RcodeRefused, r.Rcode)
	assert.Empty(t, r.Answer)
}
