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

//go:build linux

package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenConfig_reusePort(t *testing.T) {
	lc := ListenConfig(true)
	l1, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l1.Close()

	l2, err := lc.Listen(context.Background(), "tcp", l1.Addr().String())
	require.NoError(t, err, "second listener on the same port")
	l2.Close()
}
