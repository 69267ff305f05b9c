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
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	m   sync.Mutex
	got [][]byte
	err error
}

func (r *recorder) Update(b []byte) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, append([]byte(nil), b...))
	return nil
}

func (r *recorder) last() string {
	r.m.Lock()
	defer r.m.Unlock()
	if len(r.got) == 0 {
		return ""
	}
	return string(r.got[len(r.got)-1])
}

func (r *recorder) count() int {
	r.m.Lock()
	defer r.m.Unlock()
	return len(r.got)
}

func TestFileSource(t *testing.T) {
	file := filepath.Join(t.TempDir(), "list.dat")
	require.NoError(t, os.WriteFile(file, []byte("com\n"), 0o644))

	s, err := NewFileSource(FileSourceConfig{File: file}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, file, s.Name())

	r := new(recorder)
	require.NoError(t, s.LoadAndAddListener(context.Background(), r))
	assert.Equal(t, "com\n", r.last())

	require.NoError(t, os.WriteFile(file, []byte("net\n"), 0o644))
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, "net\n", r.last())

	errRejected := errors.New("rejected")
	r.err = errRejected
	assert.ErrorIs(t, s.Reload(context.Background()), errRejected)

	s.DeleteListener(r)
	r.err = nil
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, 2, r.count())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Reload(context.Background()), ErrClosed)
}

func TestFileSource_missingFile(t *testing.T) {
	_, err := NewFileSource(FileSourceConfig{}, nil)
	assert.Error(t, err)

	s, err := NewFileSource(FileSourceConfig{File: filepath.Join(t.TempDir(), "nope")}, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Error(t, s.LoadAndAddListener(context.Background(), new(recorder)))
}

func TestFileSource_autoReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "list.dat")
	require.NoError(t, os.WriteFile(file, []byte("com\n"), 0o644))

	s, err := NewFileSource(FileSourceConfig{File: file, AutoReload: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	r := new(recorder)
	require.NoError(t, s.LoadAndAddListener(context.Background(), r))
	require.NoError(t, os.WriteFile(file, []byte("org\n"), 0o644))
	assert.Eventually(t, func() bool { return r.last() == "org\n" }, 5*time.Second, 50*time.Millisecond)
}

func listOf(n int) string {
	sb := new(strings.Builder)
	sb.WriteString("// header\n")
	for i := 0; i < n; i++ {
		sb.WriteString("a")
		sb.WriteString(strings.Repeat("b", i))
		sb.WriteString(".com\n")
	}
	return sb.String()
}

type testServer struct {
	hits     atomic.Int32
	notModif atomic.Int32
	body     atomic.Value // string
	fail     atomic.Bool
}

func (ts *testServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ts.hits.Add(1)
	if ts.fail.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	body := ts.body.Load().(string)
	etag := `"` + strconv.Itoa(len(body)) + `"`
	if r.Header.Get("If-None-Match") == etag {
		ts.notModif.Add(1)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	_, _ = w.Write([]byte(body))
}

func TestHTTPSource(t *testing.T) {
	ts := new(testServer)
	ts.body.Store(listOf(3))
	srv := httptest.NewServer(ts)
	defer srv.Close()

	dump := filepath.Join(t.TempDir(), "list.dump")
	s := NewHTTPSource(HTTPSourceConfig{
		URL:      srv.URL,
		Interval: -1,
		MinRules: 3,
		DumpFile: dump,
	}, zaptest.NewLogger(t))
	defer s.Close()
	assert.Equal(t, srv.URL, s.Name())

	r := new(recorder)
	require.NoError(t, s.LoadAndAddListener(context.Background(), r))
	assert.Equal(t, listOf(3), r.last())

	// Not modified, nothing is pushed.
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, 1, r.count())
	assert.Equal(t, int32(1), ts.notModif.Load())

	ts.body.Store(listOf(5))
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, listOf(5), r.last())

	// Too small lists are rejected.
	ts.body.Store(listOf(1))
	assert.ErrorIs(t, s.Reload(context.Background()), errTooFewRules)
	assert.Equal(t, listOf(5), r.last())

	ts.fail.Store(true)
	assert.Error(t, s.Reload(context.Background()))

	// The dump holds the last good download.
	b, err := readDump(dump)
	require.NoError(t, err)
	assert.Equal(t, listOf(5), string(b))

	// A new source starts from the dump while the server is down.
	s2 := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, Interval: -1, MinRules: 3, DumpFile: dump}, zaptest.NewLogger(t))
	defer s2.Close()
	r2 := new(recorder)
	require.NoError(t, s2.LoadAndAddListener(context.Background(), r2))
	assert.Equal(t, listOf(5), r2.last())

	// Without a dump there is nothing to load.
	s3 := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, Interval: -1, MinRules: 3}, nil)
	defer s3.Close()
	assert.Error(t, s3.LoadAndAddListener(context.Background(), new(recorder)))
}

func TestHTTPSource_maxSize(t *testing.T) {
	ts := new(testServer)
	ts.body.Store(listOf(100))
	srv := httptest.NewServer(ts)
	defer srv.Close()

	s := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, Interval: -1, MinRules: 1, MaxSize: 64}, nil)
	defer s.Close()
	err := s.LoadAndAddListener(context.Background(), new(recorder))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "larger than")
}

func TestHTTPSource_refresher(t *testing.T) {
	ts := new(testServer)
	ts.body.Store(listOf(3))
	srv := httptest.NewServer(ts)
	defer srv.Close()

	s := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, Interval: 1, MinRules: 1}, zaptest.NewLogger(t))
	r := new(recorder)
	require.NoError(t, s.LoadAndAddListener(context.Background(), r))

	ts.body.Store(listOf(4))
	assert.Eventually(t, func() bool { return r.last() == listOf(4) }, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.LoadAndAddListener(context.Background(), r), ErrClosed)
}

func TestHTTPSource_rejectedListIsRetried(t *testing.T) {
	ts := new(testServer)
	ts.body.Store(listOf(3))
	srv := httptest.NewServer(ts)
	defer srv.Close()

	s := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, Interval: -1, MinRules: 1}, zaptest.NewLogger(t))
	defer s.Close()
	h := publicsuffix.NewHolder(publicsuffix.Options{Punycode: true})
	require.NoError(t, s.LoadAndAddListener(context.Background(), h))
	first := h.Load()
	require.NotNil(t, first)

	// The holder can't parse this one, the label can't be transcoded.
	bad := listOf(3) + "\xff.com\n"
	ts.body.Store(bad)
	assert.ErrorIs(t, s.Reload(context.Background()), publicsuffix.ErrEncoding)
	assert.Same(t, first, h.Load())

	// The rejected list is downloaded again, not reported as not modified.
	assert.ErrorIs(t, s.Reload(context.Background()), publicsuffix.ErrEncoding)
	assert.Equal(t, int32(0), ts.notModif.Load())
	assert.Same(t, first, h.Load())

	ts.body.Store(listOf(5))
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, 5, h.Load().List.Len())

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, int32(1), ts.notModif.Load())
}

func TestCalcBackoff(t *testing.T) {
	initial, max := time.Second, time.Minute
	for failures, want := range map[int]time.Duration{
		1:  time.Second,
		2:  2 * time.Second,
		4:  8 * time.Second,
		10: time.Minute,
		99: time.Minute,
	} {
		for i := 0; i < 20; i++ {
			got := calcBackoff(initial, max, failures)
			assert.GreaterOrEqual(t, got, time.Duration(float64(want)*0.8))
			assert.LessOrEqual(t, got, time.Duration(float64(want)*1.2))
		}
	}
}

func TestCountRules(t *testing.T) {
	assert.Equal(t, 0, countRules(nil))
	assert.Equal(t, 2, countRules([]byte("// c\n\ncom\n  net  \n// ===BEGIN PRIVATE DOMAINS===\n")))
}

func TestDump(t *testing.T) {
	file := filepath.Join(t.TempDir(), "d")
	require.NoError(t, writeDump(file, []byte("com\n")))
	b, err := readDump(file)
	require.NoError(t, err)
	assert.Equal(t, "com\n", string(b))

	require.NoError(t, os.WriteFile(file, []byte("not snappy"), 0o644))
	_, err = readDump(file)
	assert.Error(t, err)
}
