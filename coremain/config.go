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

package coremain

import (
	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/cache"
	"github.com/IrineSistiana/pslookup/pkg/list_source"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/IrineSistiana/pslookup/pkg/rate_limiter"
)

type Config struct {
	Log       mlog.LogConfig       `yaml:"log"`
	Include   []string             `yaml:"include"`
	List      ListConfig           `yaml:"list"`
	Normalize publicsuffix.Options `yaml:"normalize"`
	Cache     cache.Config         `yaml:"cache"`
	API       APIConfig            `yaml:"api"`
	DNS       DNSConfig            `yaml:"dns"`
}

// ListConfig selects where the list is loaded from. Exactly one source
// must be configured.
type ListConfig struct {
	File *list_source.FileSourceConfig `yaml:"file"`
	HTTP *list_source.HTTPSourceConfig `yaml:"http"`
}

type APIConfig struct {
	// HTTP is the listen address of the api server, e.g. "127.0.0.1:8080".
	// Empty disables the api server.
	HTTP string `yaml:"http"`

	// Cert and Key enable https.
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`

	// ProxyProtocol accepts PROXY protocol v1/v2 headers from a
	// load balancer.
	ProxyProtocol bool `yaml:"proxy_protocol"`
}

type DNSConfig struct {
	// Zone is the zone queries are answered for. Default is "psl.".
	Zone string `yaml:"zone"`

	// TTL (sec) of answer records.
	TTL uint32 `yaml:"ttl"`

	// Listeners are "udp://host:port" or "tcp://host:port" addresses.
	// Empty disables the dns server.
	Listeners []string `yaml:"listeners"`

	// ReusePort opens listeners with SO_REUSEPORT. Linux only.
	ReusePort bool `yaml:"reuse_port"`

	IdleTimeout uint `yaml:"idle_timeout"` // (sec) tcp connection idle timeout.

	// RateLimit limits queries per client. Disabled if nil.
	RateLimit *rate_limiter.Opts `yaml:"rate_limit"`
}
