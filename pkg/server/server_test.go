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

package server

import (
	"context"
	"crypto/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type echoHandler struct {
	t testing.TB
}

func (h echoHandler) ServeDNS(_ context.Context, q *dns.Msg, meta QueryMeta) (*dns.Msg, error) {
	if !meta.ClientAddr.IsLoopback() {
		h.t.Errorf("unexpected client addr %s", meta.ClientAddr)
	}
	r := new(dns.Msg)
	r.SetReply(q)
	return r, nil
}

func writeJunkData(c net.Conn) {
	junk := make([]byte, 1200)
	rand.Read(junk)
	c.Write(junk)
}

func exchangeTest(tb testing.TB, network, addr string) {
	wg := new(sync.WaitGroup)
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &dns.Client{Net: network, Timeout: time.Second * 2}
			for i := 0; i < 50; i++ {
				echoMsg := new(dns.Msg)
				echoMsg.SetQuestion("example.com.", dns.TypeA)
				echoMsg.Id = uint16(i)
				r, _, err := client.Exchange(echoMsg, addr)
				if err != nil {
					tb.Error(err)
					return
				}
				if r.Id != echoMsg.Id {
					tb.Errorf("id mismatched, want %d, got %d", echoMsg.Id, r.Id)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestServer(t *testing.T) {
	for _, network := range []string{"udp", "tcp"} {
		t.Run(network, func(t *testing.T) {
			s := NewServer(ServerOpts{DNSHandler: echoHandler{t: t}, Logger: zaptest.NewLogger(t)})
			errCh := make(chan error, 1)
			addr, err := s.Listen(context.Background(), network+"://127.0.0.1:0", false, errCh)
			require.NoError(t, err)

			c, err := net.Dial(network, addr.String())
			require.NoError(t, err)
			writeJunkData(c)
			c.Close()

			exchangeTest(t, network, addr.String())

			require.NoError(t, s.Close())
			select {
			case err := <-errCh:
				assert.ErrorIs(t, err, ErrServerClosed)
			case <-time.After(time.Second):
				t.Fatal("server did not exit")
			}
			assert.True(t, s.Closed())
		})
	}
}

func TestServer_closed(t *testing.T) {
	s := NewServer(ServerOpts{DNSHandler: echoHandler{t: t}})
	require.NoError(t, s.Close())

	l, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, s.ServeUDP(l), ErrServerClosed)

	s = NewServer(ServerOpts{})
	l, err = net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, s.ServeUDP(l), errMissingDNSHandler)

	_, err = s.Listen(context.Background(), "quic://127.0.0.1:0", false, nil)
	assert.Error(t, err)
}
