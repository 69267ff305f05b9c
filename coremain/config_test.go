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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/IrineSistiana/pslookup/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dns.yaml", `
dns:
  listeners:
    - tcp://127.0.0.1:5353
`)
	writeFile(t, dir, "cache.yaml", `
cache:
  size: 2048
  ttl: 60
api:
  http: 127.0.0.1:9999
`)
	main := writeFile(t, dir, "config.yaml", `
log:
  level: debug
include:
  - `+filepath.Join(dir, "dns.yaml")+`
  - `+filepath.Join(dir, "cache.yaml")+`
list:
  http:
    url: https://example.com/list.dat
    interval: 3600
    dump_file: list.dump
normalize:
  punycode: true
api:
  http: 127.0.0.1:8080
  proxy_protocol: true
dns:
  zone: suffix.example.
  listeners:
    - udp://127.0.0.1:5353
  rate_limit:
    limit: 20
    mask4: 24
`)

	cfg, err := LoadConfig(main)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	require.NotNil(t, cfg.List.HTTP)
	assert.Nil(t, cfg.List.File)
	assert.Equal(t, "https://example.com/list.dat", cfg.List.HTTP.URL)
	assert.Equal(t, 3600, cfg.List.HTTP.Interval)
	assert.Equal(t, "list.dump", cfg.List.HTTP.DumpFile)
	assert.True(t, cfg.Normalize.Punycode)
	assert.False(t, cfg.Normalize.UnicodeFold)

	// Sections of the main config win, empty ones are taken from includes.
	assert.Equal(t, "127.0.0.1:8080", cfg.API.HTTP)
	assert.True(t, cfg.API.ProxyProtocol)
	assert.Equal(t, 2048, cfg.Cache.Size)
	assert.Equal(t, 60, cfg.Cache.TTL)

	assert.Equal(t, "suffix.example.", cfg.DNS.Zone)
	assert.Equal(t, []string{"udp://127.0.0.1:5353", "tcp://127.0.0.1:5353"}, cfg.DNS.Listeners)
	require.NotNil(t, cfg.DNS.RateLimit)
	assert.Equal(t, 20.0, cfg.DNS.RateLimit.Limit)
	assert.Equal(t, 24, cfg.DNS.RateLimit.Mask4)
}

func TestLoadConfig_errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unknown key", func(t *testing.T) {
		p := writeFile(t, dir, "unknown.yaml", `
list:
  file:
    file: list.dat
    no_such_key: 1
`)
		_, err := LoadConfig(p)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("cycle include", func(t *testing.T) {
		a := filepath.Join(dir, "a.yaml")
		b := filepath.Join(dir, "b.yaml")
		writeFile(t, dir, "a.yaml", "include:\n  - "+b+"\n")
		writeFile(t, dir, "b.yaml", "include:\n  - "+a+"\n")
		_, err := LoadConfig(a)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle include")
	})

	t.Run("include depth", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			next := filepath.Join(dir, fmt.Sprintf("d%d.yaml", i+1))
			writeFile(t, dir, fmt.Sprintf("d%d.yaml", i), "include:\n  - "+next+"\n")
		}
		writeFile(t, dir, "d10.yaml", "log:\n  level: info\n")
		_, err := LoadConfig(filepath.Join(dir, "d0.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "include depth")
	})
}

func TestConfig_merge(t *testing.T) {
	cfg := &Config{API: APIConfig{HTTP: "a"}}
	sub := &Config{
		API:   APIConfig{HTTP: "b"},
		Cache: cache.Config{Size: 10},
		DNS:   DNSConfig{Listeners: []string{"udp://:53"}},
	}
	ignored := cfg.merge(sub)
	assert.Equal(t, []string{"api"}, ignored)
	assert.Equal(t, "a", cfg.API.HTTP)
	assert.Equal(t, 10, cfg.Cache.Size)
	assert.Equal(t, []string{"udp://:53"}, cfg.DNS.Listeners)
}
