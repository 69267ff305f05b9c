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

package list_source

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/safe_close"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type FileSourceConfig struct {
	File       string `yaml:"file"`
	AutoReload bool   `yaml:"auto_reload"`
}

// reloadDelay merges the burst of events editors produce on save.
const reloadDelay = time.Second

// FileSource reads the list from a local file. With AutoReload, the file
// is watched and reloaded when it changes.
type FileSource struct {
	logger     *zap.Logger
	file       string
	autoReload bool

	listeners listeners
	sc        *safe_close.SafeClose
}

func NewFileSource(cfg FileSourceConfig, logger *zap.Logger) (*FileSource, error) {
	if len(cfg.File) == 0 {
		return nil, fmt.Errorf("missing file path")
	}
	s := &FileSource{
		logger:     nopLoggerIfNil(logger),
		file:       cfg.File,
		autoReload: cfg.AutoReload,
		sc:         safe_close.NewSafeClose(),
	}
	if s.autoReload {
		if err := s.startFsWatcher(); err != nil {
			return nil, fmt.Errorf("failed to start fs watcher, %w", err)
		}
	}
	return s, nil
}

func (s *FileSource) Name() string {
	return s.file
}

func (s *FileSource) LoadAndAddListener(_ context.Context, l Listener) error {
	if s.sc.Closed() {
		return ErrClosed
	}
	b, err := os.ReadFile(s.file)
	if err != nil {
		return err
	}
	if err := l.Update(b); err != nil {
		return err
	}
	s.listeners.add(l)
	return nil
}

func (s *FileSource) DeleteListener(l Listener) {
	s.listeners.remove(l)
}

func (s *FileSource) Reload(_ context.Context) error {
	if s.sc.Closed() {
		return ErrClosed
	}
	b, err := os.ReadFile(s.file)
	if err != nil {
		return err
	}
	return s.listeners.push(b, s.logger)
}

func (s *FileSource) Close() error {
	s.sc.Done()
	s.sc.CloseWait()
	return nil
}

func (s *FileSource) startFsWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.file); err != nil {
		w.Close()
		return err
	}

	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		defer w.Close()

		var reloadTimer *time.Timer
		defer func() {
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
		}()
		for {
			select {
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				s.logger.Debug(
					"fs event",
					zap.Stringer("event", e.Op),
					zap.String("file", e.Name),
				)
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				removed := hasOp(e, fsnotify.Remove) || hasOp(e, fsnotify.Rename)
				reloadTimer = time.AfterFunc(reloadDelay, func() {
					s.reloadFromEvent(w, removed)
				})

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("fs notify error", zap.Error(err))
			case <-closeSignal:
				return
			}
		}
	})
	return nil
}

func (s *FileSource) reloadFromEvent(w *fsnotify.Watcher, removed bool) {
	if s.sc.Closed() {
		return
	}
	if removed {
		// The watch is gone with the old inode. Files that are replaced by
		// rename (most editors, config management) need a new watch.
		_ = w.Remove(s.file)
		if err := w.Add(s.file); err != nil {
			s.logger.Error(
				"failed to re-watch file, auto reload may not work anymore",
				zap.String("file", s.file),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("reloading list file", zap.String("file", s.file))
	if err := s.Reload(context.Background()); err != nil {
		s.logger.Error("failed to reload list file", zap.String("file", s.file), zap.Error(err))
		return
	}
	s.logger.Info("list file reloaded", zap.String("file", s.file))
}

func hasOp(e fsnotify.Event, op fsnotify.Op) bool {
	return e.Op&op == op
}
