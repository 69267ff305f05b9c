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
	"net"

	"github.com/IrineSistiana/pslookup/pkg/utils"
)

// ListenConfig returns the net.ListenConfig for dns listeners.
// If reusePort is true, sockets are opened with SO_REUSEPORT so several
// processes can share the same address.
func ListenConfig(reusePort bool) *net.ListenConfig {
	return &net.ListenConfig{Control: listenerControl(reusePort)}
}

// Listen opens a listener for addr and serves it with s in a new
// goroutine. addr is "udp://host:port" or "tcp://host:port". An addr
// without a scheme is udp. errCh receives the serve error.
func (s *Server) Listen(ctx context.Context, addr string, reusePort bool, errCh chan<- error) (net.Addr, error) {
	protocol, host := utils.SplitSchemeAndHost(addr)
	lc := ListenConfig(reusePort)
	switch protocol {
	case "", "udp":
		c, err := lc.ListenPacket(ctx, "udp", host)
		if err != nil {
			return nil, err
		}
		go func() { errCh <- s.ServeUDP(c) }()
		return c.LocalAddr(), nil
	case "tcp":
		l, err := lc.Listen(ctx, "tcp", host)
		if err != nil {
			return nil, err
		}
		go func() { errCh <- s.ServeTCP(l) }()
		return l.Addr(), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", protocol)
	}
}
