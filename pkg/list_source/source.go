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

// Package list_source loads raw list bytes from files or from a URL and
// pushes them to listeners whenever they change.
package list_source

import (
	"context"
	"errors"
	"sync"

	"github.com/IrineSistiana/pslookup/pkg/utils"
	"go.uber.org/zap"
)

// Listener receives every new version of the list.
type Listener interface {
	Update(b []byte) error
}

// Source is a list source.
type Source interface {
	// LoadAndAddListener loads the current list into l and keeps l
	// updated until the Source is closed.
	LoadAndAddListener(ctx context.Context, l Listener) error

	// Reload fetches the list now and pushes it to all listeners.
	Reload(ctx context.Context) error

	// Name describes where the list comes from, e.g. a path or a URL.
	Name() string

	Close() error
}

// ErrClosed is returned by a closed Source.
var ErrClosed = errors.New("list source closed")

type listeners struct {
	m  sync.Mutex
	ls map[Listener]struct{}
}

func (s *listeners) add(l Listener) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.ls == nil {
		s.ls = make(map[Listener]struct{})
	}
	s.ls[l] = struct{}{}
}

func (s *listeners) remove(l Listener) {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.ls, l)
}

// push calls Update on every listener and returns their errors.
func (s *listeners) push(b []byte, logger *zap.Logger) error {
	s.m.Lock()
	ls := make([]Listener, 0, len(s.ls))
	for l := range s.ls {
		ls = append(ls, l)
	}
	s.m.Unlock()

	var es utils.Errors
	for _, l := range ls {
		if err := l.Update(b); err != nil {
			logger.Error("failed to update list listener", zap.Error(err))
			es.Append(err)
		}
	}
	return es.Build()
}

func nopLoggerIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
