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

// Package dns_handler answers public suffix lookups over dns.
//
// A TXT query for "<name>.<zone>" is answered with a single TXT record
// holding the strings "suffix=<suffix>", "domain=<domain>" and
// "type=<type>". The domain string is left out if name has no
// registrable domain.
package dns_handler

import (
	"context"
	"errors"
	"net/netip"
	"strconv"
	"strings"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/lookup"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/IrineSistiana/pslookup/pkg/server"
	"github.com/IrineSistiana/pslookup/pkg/utils"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	DefaultZone = "psl."
	defaultTTL  = 300
)

// Looker looks up a name. *lookup.Service implements it.
type Looker interface {
	Lookup(name string) (lookup.Result, error)
}

// Limiter limits queries per client. *rate_limiter.Limiter implements it.
type Limiter interface {
	Allow(addr netip.Addr) bool
}

type PSLHandlerOpts struct {
	// Looker is required.
	Looker Looker

	// Zone is the zone the handler is authoritative for.
	// Default is DefaultZone.
	Zone string

	// TTL of the answer records in seconds. Default is defaultTTL.
	TTL uint32

	// Limiter is optional. Queries over the limit are refused.
	Limiter Limiter

	// Logger is used for logging. Default is a noop logger.
	Logger *zap.Logger
}

func (opts *PSLHandlerOpts) init() error {
	if opts.Looker == nil {
		return errors.New("nil looker")
	}
	if len(opts.Zone) == 0 {
		opts.Zone = DefaultZone
	}
	if _, ok := dns.IsDomainName(opts.Zone); !ok {
		return errors.New("invalid zone " + strconv.Quote(opts.Zone))
	}
	opts.Zone = dns.CanonicalName(opts.Zone)
	utils.SetDefaultNum(&opts.TTL, defaultTTL)
	if opts.Logger == nil {
		opts.Logger = mlog.Nop()
	}
	return nil
}

type PSLHandler struct {
	opts PSLHandlerOpts
}

var _ server.Handler = (*PSLHandler)(nil)

func NewPSLHandler(opts PSLHandlerOpts) (*PSLHandler, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}
	return &PSLHandler{opts: opts}, nil
}

// Zone returns the canonical zone of h.
func (h *PSLHandler) Zone() string {
	return h.opts.Zone
}

// ServeDNS implements server.Handler. It always returns a response.
func (h *PSLHandler) ServeDNS(_ context.Context, q *dns.Msg, meta server.QueryMeta) (*dns.Msg, error) {
	r := new(dns.Msg)
	r.SetReply(q)
	if len(q.Question) != 1 {
		r.Rcode = dns.RcodeFormatError
		return r, nil
	}

	if l := h.opts.Limiter; l != nil && !l.Allow(meta.ClientAddr) {
		r.Rcode = dns.RcodeRefused
		return r, nil
	}

	question := q.Question[0]
	name, inZone := h.nameOf(question.Name)
	if !inZone {
		r.Rcode = dns.RcodeRefused
		return r, nil
	}
	r.Authoritative = true

	if question.Qclass != dns.ClassINET || (question.Qtype != dns.TypeTXT && question.Qtype != dns.TypeANY) {
		return r, nil
	}
	if len(name) == 0 {
		return r, nil
	}

	res, err := h.opts.Looker.Lookup(name)
	switch {
	case err == nil:
	case errors.Is(err, publicsuffix.ErrEmptyInput):
		return r, nil
	case errors.Is(err, publicsuffix.ErrEncoding):
		r.Rcode = dns.RcodeFormatError
		return r, nil
	default:
		if !errors.Is(err, lookup.ErrNoList) {
			h.opts.Logger.Warn("lookup err", zap.String("name", name), zap.Stringer("client", meta.ClientAddr), zap.Error(err))
		}
		r.Rcode = dns.RcodeServerFailure
		return r, nil
	}

	h.opts.Logger.Debug("lookup",
		zap.String("name", name),
		zap.String("suffix", res.Suffix),
		zap.String("domain", res.Domain),
		zap.Stringer("client", meta.ClientAddr),
		zap.Bool("udp", meta.FromUDP),
	)
	r.Answer = append(r.Answer, &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   question.Name,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    h.opts.TTL,
		},
		Txt: txtOf(res),
	})
	return r, nil
}

// nameOf strips the zone from qname. inZone is false if qname is not
// in the zone.
func (h *PSLHandler) nameOf(qname string) (name string, inZone bool) {
	if !dns.IsSubDomain(h.opts.Zone, qname) {
		return "", false
	}
	name = qname[:len(qname)-len(h.opts.Zone)]
	name = strings.TrimSuffix(name, ".")
	return unescapeName(name), true
}

func txtOf(res lookup.Result) []string {
	txt := make([]string, 0, 3)
	txt = append(txt, "suffix="+res.Suffix)
	if res.HasDomain() {
		txt = append(txt, "domain="+res.Domain)
	}
	txt = append(txt, "type="+res.Type.String())
	return txt
}

// unescapeName converts the presentation format escapes "\X" and "\DDD"
// of a name back to bytes. Escaped dots are kept as is.
func unescapeName(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b = append(b, c)
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			v := int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0')
			if v <= 0xff && v != '.' {
				b = append(b, byte(v))
				i += 3
				continue
			}
		}
		if s[i+1] == '.' {
			b = append(b, c)
			continue
		}
		b = append(b, s[i+1])
		i++
	}
	return string(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
