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
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/utils"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	tcpFirstReadTimeout = time.Millisecond * 500
)

func (s *Server) ServeTCP(l net.Listener) error {
	defer l.Close()

	handler := s.opts.DNSHandler
	if handler == nil {
		return errMissingDNSHandler
	}

	closer := io.Closer(l)
	if ok := s.trackCloser(&closer, true); !ok {
		return ErrServerClosed
	}
	defer s.trackCloser(&closer, false)

	// handle listener
	listenerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for {
		c, err := l.Accept()
		if err != nil {
			if s.Closed() {
				return ErrServerClosed
			}
			return fmt.Errorf("unexpected listener err: %w", err)
		}

		// handle connection
		go s.handleTCPConn(listenerCtx, c, handler)
	}
}

func (s *Server) handleTCPConn(ctx context.Context, c net.Conn, handler Handler) {
	defer c.Close()
	tcpConnCtx, cancelConn := context.WithCancel(ctx)
	defer cancelConn()

	closer := io.Closer(c)
	if !s.trackCloser(&closer, true) {
		return
	}
	defer s.trackCloser(&closer, false)

	firstReadTimeout := tcpFirstReadTimeout
	idleTimeout := s.opts.IdleTimeout
	if idleTimeout < firstReadTimeout {
		firstReadTimeout = idleTimeout
	}

	meta := QueryMeta{
		ClientAddr: utils.GetAddrFromAddr(c.RemoteAddr()),
	}

	// dns.Conn does the two bytes length framing on stream connections.
	dc := &dns.Conn{Conn: c}
	writeLock := new(sync.Mutex)
	firstRead := true
	for {
		if firstRead {
			firstRead = false
			c.SetReadDeadline(time.Now().Add(firstReadTimeout))
		} else {
			c.SetReadDeadline(time.Now().Add(idleTimeout))
		}
		req, err := dc.ReadMsg()
		if err != nil {
			return // read err, close the connection
		}

		// handle query
		go func() {
			r, err := handler.ServeDNS(tcpConnCtx, req, meta)
			if err != nil {
				s.opts.Logger.Warn("handler err", zap.Error(err))
				c.Close()
				return
			}
			if r == nil {
				return
			}

			writeLock.Lock()
			err = dc.WriteMsg(r)
			writeLock.Unlock()
			if err != nil {
				s.opts.Logger.Warn("failed to write response", zap.Stringer("client", c.RemoteAddr()), zap.Error(err))
			}
		}()
	}
}
