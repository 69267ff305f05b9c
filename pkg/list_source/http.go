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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/safe_close"
	"github.com/IrineSistiana/pslookup/pkg/utils"
	"go.uber.org/zap"
)

// DefaultURL is where the official list is published.
const DefaultURL = "https://publicsuffix.org/list/public_suffix_list.dat"

type HTTPSourceConfig struct {
	// URL of the list. Default is DefaultURL.
	URL string `yaml:"url"`

	// Interval between refreshes in seconds. Default is one day.
	// A negative value disables refreshing.
	Interval int `yaml:"interval"`

	// Timeout of a download in seconds. Default is 30.
	Timeout int `yaml:"timeout"`

	// MinRules rejects downloads with less rules. Default is 1000.
	// A negative value disables the check.
	MinRules int `yaml:"min_rules"`

	// MaxSize is the max size of a download in bytes. Default is 16 MiB.
	MaxSize int64 `yaml:"max_size"`

	// DumpFile keeps the last good download on disk. It is used
	// when the first download fails, e.g. when starting offline.
	DumpFile string `yaml:"dump_file"`

	// Backoff after a failed refresh, in seconds. Defaults are 10 and 3600.
	InitialBackoff int `yaml:"initial_backoff"`
	MaxBackoff     int `yaml:"max_backoff"`
}

func (c *HTTPSourceConfig) init() {
	if len(c.URL) == 0 {
		c.URL = DefaultURL
	}
	utils.SetDefaultNum(&c.Interval, 86400)
	utils.SetDefaultNum(&c.Timeout, 30)
	utils.SetDefaultNum(&c.MinRules, 1000)
	utils.SetDefaultNum(&c.MaxSize, 16<<20)
	utils.SetDefaultNum(&c.InitialBackoff, 10)
	utils.SetDefaultNum(&c.MaxBackoff, 3600)
}

// HTTPSource downloads the list and refreshes it in the background.
type HTTPSource struct {
	cfg    HTTPSourceConfig
	logger *zap.Logger
	client *http.Client

	listeners   listeners
	sc          *safe_close.SafeClose
	refresherOn sync.Once

	m            sync.Mutex // serializes downloads
	last         []byte
	etag         string
	lastModified string
}

var errTooFewRules = errors.New("too few rules")

func NewHTTPSource(cfg HTTPSourceConfig, logger *zap.Logger) *HTTPSource {
	cfg.init()
	return &HTTPSource{
		cfg:    cfg,
		logger: nopLoggerIfNil(logger),
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		sc:     safe_close.NewSafeClose(),
	}
}

func (s *HTTPSource) Name() string {
	return s.cfg.URL
}

// LoadAndAddListener loads the list into l and starts the refresher.
// If the download fails, the dump file is used if there is one.
func (s *HTTPSource) LoadAndAddListener(ctx context.Context, l Listener) error {
	if s.sc.Closed() {
		return ErrClosed
	}
	if err := s.loadInto(ctx, l); err != nil {
		return err
	}
	s.listeners.add(l)
	s.refresherOn.Do(s.startRefresher)
	return nil
}

func (s *HTTPSource) DeleteListener(l Listener) {
	s.listeners.remove(l)
}

func (s *HTTPSource) loadInto(ctx context.Context, l Listener) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.last != nil {
		return l.Update(s.last)
	}

	d, err := s.downloadLocked(ctx)
	if err == nil {
		if err := l.Update(d.b); err != nil {
			return err
		}
		s.commitLocked(d)
		return nil
	}
	if len(s.cfg.DumpFile) == 0 {
		return err
	}
	s.logger.Warn("failed to download list, loading dump file", zap.String("url", s.cfg.URL), zap.Error(err))
	b, dumpErr := readDump(s.cfg.DumpFile)
	if dumpErr != nil {
		return fmt.Errorf("%w, dump file also failed, %v", err, dumpErr)
	}
	if err := l.Update(b); err != nil {
		return err
	}
	// Keep etag empty, the next refresh downloads a full copy.
	s.last = b
	return nil
}

// Reload downloads the list and pushes it to the listeners. Nothing is
// pushed if the server reports the list has not been modified.
// A download that a listener rejects is not remembered, so the next
// Reload fetches it again instead of getting "not modified".
func (s *HTTPSource) Reload(ctx context.Context) error {
	if s.sc.Closed() {
		return ErrClosed
	}
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.downloadLocked(ctx)
	if err != nil {
		return err
	}
	if d == nil {
		s.logger.Debug("list not modified", zap.String("url", s.cfg.URL))
		return nil
	}
	if err := s.listeners.push(d.b, s.logger); err != nil {
		return err
	}
	s.commitLocked(d)
	return nil
}

func (s *HTTPSource) Close() error {
	s.sc.Done()
	s.sc.CloseWait()
	return nil
}

// download is a list fetched from the server and its cache validators.
type download struct {
	b            []byte
	etag         string
	lastModified string
}

// downloadLocked fetches the list. It returns a nil download if the
// server reports the list has not been modified.
func (s *HTTPSource) downloadLocked(ctx context.Context) (*download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	if s.last != nil {
		if len(s.etag) > 0 {
			req.Header.Set("If-None-Match", s.etag)
		}
		if len(s.lastModified) > 0 {
			req.Header.Set("If-Modified-Since", s.lastModified)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		if s.last != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected status %d without a cached list", resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body, %w", err)
	}
	if int64(len(b)) > s.cfg.MaxSize {
		return nil, fmt.Errorf("list is larger than %d bytes", s.cfg.MaxSize)
	}
	if n := countRules(b); n < s.cfg.MinRules {
		return nil, fmt.Errorf("%w, got %d, want at least %d", errTooFewRules, n, s.cfg.MinRules)
	}
	s.logger.Info(
		"list downloaded",
		zap.String("url", s.cfg.URL),
		zap.Int("size", len(b)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &download{
		b:            b,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// commitLocked makes d the last good list.
func (s *HTTPSource) commitLocked(d *download) {
	s.last = d.b
	s.etag = d.etag
	s.lastModified = d.lastModified
	if len(s.cfg.DumpFile) > 0 {
		if err := writeDump(s.cfg.DumpFile, d.b); err != nil {
			s.logger.Warn("failed to write dump file", zap.String("file", s.cfg.DumpFile), zap.Error(err))
		}
	}
}

func (s *HTTPSource) startRefresher() {
	if s.cfg.Interval < 0 {
		return
	}
	interval := time.Duration(s.cfg.Interval) * time.Second
	initialBackoff := time.Duration(s.cfg.InitialBackoff) * time.Second
	maxBackoff := time.Duration(s.cfg.MaxBackoff) * time.Second

	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-closeSignal:
				cancel()
			case <-ctx.Done():
			}
		}()

		failures := 0
		for {
			wait := interval
			if failures > 0 {
				wait = calcBackoff(initialBackoff, maxBackoff, failures)
			}
			timer := time.NewTimer(wait)
			select {
			case <-closeSignal:
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := s.Reload(ctx); err != nil {
				if errors.Is(err, ErrClosed) || ctx.Err() != nil {
					return
				}
				failures++
				s.logger.Warn(
					"list refresh failed",
					zap.String("url", s.cfg.URL),
					zap.Int("attempt", failures),
					zap.Error(err),
				)
				continue
			}
			if failures > 0 {
				s.logger.Info("list refresh recovered", zap.Int("failures", failures))
			}
			failures = 0
		}
	})
}

// calcBackoff returns initial * 2^(failures-1) capped at max, +-20% jitter.
func calcBackoff(initial, max time.Duration, failures int) time.Duration {
	backoff := max
	if f := float64(initial) * math.Pow(2, float64(failures-1)); f < float64(max) {
		backoff = time.Duration(f)
	}
	const jitterFrac = 0.2
	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFrac * float64(backoff))
	return backoff + jitter
}

// countRules counts lines that are not blank and not comments.
func countRules(b []byte) int {
	n := 0
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) > 0 && !strings.HasPrefix(line, "//") {
			n++
		}
	}
	return n
}
