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

package safe_close

import "sync"

// SafeClose coordinates the shutdown of a component and the goroutines
// it started.
//
// The component calls Done once its own work is finished. Background
// goroutines are started with Attach and must return after the close
// signal fires. CloseWait, called by the owner, fires the signal and
// blocks until Done was called and all attached goroutines returned.
// A goroutine started by Attach must never call CloseWait, it would
// wait on itself. Use SendCloseSignal to report a fatal error instead.
type SafeClose struct {
	m        sync.Mutex
	wg       sync.WaitGroup
	closed   bool
	closeErr error
	signal   chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func NewSafeClose() *SafeClose {
	return &SafeClose{
		signal: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// closeLocked fires the close signal. s.m must be held.
func (s *SafeClose) closeLocked(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.closeErr = err
	close(s.signal)
}

// CloseWait fires the close signal and waits for Done and for all
// attached goroutines. It can be called many times.
func (s *SafeClose) CloseWait() {
	s.m.Lock()
	s.closeLocked(nil)
	s.m.Unlock()

	s.wg.Wait()
	<-s.done
}

// SendCloseSignal fires the close signal with a cause, it does not wait.
// Only the first cause is kept.
func (s *SafeClose) SendCloseSignal(err error) {
	s.m.Lock()
	s.closeLocked(err)
	s.m.Unlock()
}

// Err returns the cause passed to the first SendCloseSignal.
func (s *SafeClose) Err() error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.closeErr
}

// Closed reports whether the close signal was fired.
func (s *SafeClose) Closed() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.closed
}

func (s *SafeClose) ReceiveCloseSignal() <-chan struct{} {
	return s.signal
}

// Attach runs f in a new goroutine tracked by CloseWait. f must call
// done before it returns. f is not run if s is already closed.
func (s *SafeClose) Attach(f func(done func(), closeSignal <-chan struct{})) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	var once sync.Once
	go f(func() { once.Do(s.wg.Done) }, s.signal)
}

// Done tells CloseWait that the component itself has finished.
// It can be called many times.
func (s *SafeClose) Done() {
	s.doneOnce.Do(func() { close(s.done) })
}
