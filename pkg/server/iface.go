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
	"net/netip"

	"github.com/miekg/dns"
)

// Handler handles dns query.
type Handler interface {
	// ServeDNS handles q and returns the response. A nil response means
	// no reply will be sent.
	// Implements must not keep and use q after the ServeDNS returned.
	// ServeDNS should handle dns errors by itself and return a proper error
	// responses for clients.
	// If ServeDNS returns an error, caller considers that the error is
	// associated with the downstream connection and will close the
	// downstream connection immediately.
	ServeDNS(ctx context.Context, q *dns.Msg, meta QueryMeta) (*dns.Msg, error)
}

// QueryMeta holds the information of a query that is not in the
// dns message.
type QueryMeta struct {
	ClientAddr netip.Addr // Maybe invalid
	FromUDP    bool
}
