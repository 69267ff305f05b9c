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

package coremain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/api"
	"github.com/IrineSistiana/pslookup/pkg/cache"
	"github.com/IrineSistiana/pslookup/pkg/list_source"
	"github.com/IrineSistiana/pslookup/pkg/lookup"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/IrineSistiana/pslookup/pkg/safe_close"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const initialLoadTimeout = time.Minute

type PSLookup struct {
	logger *zap.Logger // non-nil logger.

	holder  *publicsuffix.Holder
	source  list_source.Source
	cache   cache.Backend
	service *lookup.Service

	apiAddr  net.Addr
	dnsAddrs []net.Addr

	httpMux    *chi.Mux
	metricsReg *prometheus.Registry
	sc         *safe_close.SafeClose
}

// NewPSLookup initializes a pslookup instance and starts its servers.
func NewPSLookup(cfg *Config) (*PSLookup, error) {
	// Init logger.
	lg, err := mlog.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	m := &PSLookup{
		logger:     lg,
		holder:     publicsuffix.NewHolder(cfg.Normalize),
		httpMux:    chi.NewRouter(),
		metricsReg: newMetricsReg(),
		sc:         safe_close.NewSafeClose(),
	}
	// This must be called after m.httpMux and m.metricsReg been set.
	m.initHttpMux()

	if err := m.init(cfg); err != nil {
		m.closeComponents()
		return nil, err
	}

	// Close all components on signal.
	// From here, call m.sc.SendCloseSignal() if anything failed.
	m.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		defer m.sc.Done()
		<-closeSignal
		m.logger.Info("starting shutdown sequences")
		m.closeComponents()
		m.logger.Info("all components were closed")
	})

	if err := m.startServers(cfg); err != nil {
		m.sc.SendCloseSignal(err)
		m.sc.CloseWait()
		return nil, err
	}
	return m, nil
}

func (m *PSLookup) init(cfg *Config) error {
	src, err := newSource(cfg.List, m.logger)
	if err != nil {
		return fmt.Errorf("failed to init list source: %w", err)
	}
	m.source = src

	m.logger.Info("loading list", zap.String("source", src.Name()))
	ctx, cancel := context.WithTimeout(context.Background(), initialLoadTimeout)
	defer cancel()
	if err := src.LoadAndAddListener(ctx, m.holder); err != nil {
		return fmt.Errorf("failed to load list from %s: %w", src.Name(), err)
	}
	if snap := m.holder.Load(); snap != nil {
		m.logger.Info("list loaded",
			zap.String("fingerprint", snap.Fingerprint),
			zap.Int("rules", snap.List.Len()),
			zap.Int("skipped", snap.List.Stats().Skipped),
		)
	}

	c, err := cache.New(cfg.Cache, m.logger.Named("cache"))
	if err != nil {
		return fmt.Errorf("failed to init cache: %w", err)
	}
	m.cache = c

	svc, err := lookup.NewService(lookup.Opts{
		Holder:   m.holder,
		Cache:    c,
		CacheTTL: cfg.Cache.TTLOf(),
		Metrics:  lookup.NewMetrics(m.GetMetricsReg(), m.holder),
		Logger:   m.logger.Named("lookup"),
	})
	if err != nil {
		return err
	}
	m.service = svc

	apiRouter, err := api.NewRouter(api.Opts{
		Service:  svc,
		Reloader: src,
		Logger:   m.logger.Named("api"),
	})
	if err != nil {
		return err
	}
	m.httpMux.Mount("/", apiRouter)
	return nil
}

func newSource(cfg ListConfig, logger *zap.Logger) (list_source.Source, error) {
	switch {
	case cfg.File != nil && cfg.HTTP != nil:
		return nil, errors.New("both file and http list sources are configured")
	case cfg.File != nil:
		return list_source.NewFileSource(*cfg.File, logger.Named("list_file"))
	case cfg.HTTP != nil:
		return list_source.NewHTTPSource(*cfg.HTTP, logger.Named("list_http")), nil
	default:
		return nil, errors.New("no list source is configured")
	}
}

// closeComponents closes the list source and the cache. Servers are
// closed by their own goroutines.
func (m *PSLookup) closeComponents() {
	if m.source != nil {
		if err := m.source.Close(); err != nil {
			m.logger.Warn("failed to close list source", zap.Error(err))
		}
	}
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			m.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
}

func (m *PSLookup) GetSafeClose() *safe_close.SafeClose {
	return m.sc
}

// CloseWithErr is a shortcut for m.sc.SendCloseSignal
func (m *PSLookup) CloseWithErr(err error) {
	m.sc.SendCloseSignal(err)
}

// Wait blocks until m is closed and returns the cause.
func (m *PSLookup) Wait() error {
	<-m.sc.ReceiveCloseSignal()
	m.sc.CloseWait()
	return m.sc.Err()
}

// Logger returns a non-nil logger.
func (m *PSLookup) Logger() *zap.Logger {
	return m.logger
}

// Service returns the lookup service.
func (m *PSLookup) Service() *lookup.Service {
	return m.service
}

// GetMetricsReg returns a prometheus.Registerer with a prefix of "pslookup_"
func (m *PSLookup) GetMetricsReg() prometheus.Registerer {
	return prometheus.WrapRegistererWithPrefix("pslookup_", m.metricsReg)
}

func (m *PSLookup) GetAPIRouter() *chi.Mux {
	return m.httpMux
}

func newMetricsReg() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// initHttpMux initializes api entries. It MUST be called after m.metricsReg being initialized.
func (m *PSLookup) initHttpMux() {
	// Register metrics.
	m.httpMux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.metricsReg, promhttp.HandlerOpts{}))

	// Register pprof.
	m.httpMux.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/*", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
	})

	// A helper page for invalid request.
	invalidApiReqHelper := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			b := new(bytes.Buffer)
			_, _ = fmt.Fprintf(b, "Invalid request %s %s\n\n", req.Method, req.RequestURI)
			b.WriteString("Available api urls:\n")
			_ = chi.Walk(m.httpMux, func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
				b.WriteString(method)
				b.WriteByte(' ')
				b.WriteString(route)
				b.WriteByte('\n')
				return nil
			})
			w.WriteHeader(status)
			_, _ = w.Write(b.Bytes())
		}
	}
	m.httpMux.NotFound(invalidApiReqHelper(http.StatusNotFound))
	m.httpMux.MethodNotAllowed(invalidApiReqHelper(http.StatusMethodNotAllowed))
}
