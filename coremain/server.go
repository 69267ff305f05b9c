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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/rate_limiter"
	"github.com/IrineSistiana/pslookup/pkg/server"
	"github.com/IrineSistiana/pslookup/pkg/server/dns_handler"
	"github.com/pires/go-proxyproto"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	apiReadHeaderTimeout = time.Second * 5
	apiIdleTimeout       = time.Second * 30
)

func (m *PSLookup) startServers(cfg *Config) error {
	if len(cfg.API.HTTP) == 0 && len(cfg.DNS.Listeners) == 0 {
		m.logger.Warn("neither api nor dns server is configured")
	}
	if len(cfg.API.HTTP) > 0 {
		if err := m.startAPIServer(&cfg.API); err != nil {
			return fmt.Errorf("failed to start api server, %w", err)
		}
	}
	if len(cfg.DNS.Listeners) > 0 {
		if err := m.startDNSServer(&cfg.DNS); err != nil {
			return fmt.Errorf("failed to start dns server, %w", err)
		}
	}
	return nil
}

func (m *PSLookup) startAPIServer(cfg *APIConfig) error {
	l, err := net.Listen("tcp", cfg.HTTP)
	if err != nil {
		return err
	}
	if cfg.ProxyProtocol {
		l = &proxyproto.Listener{Listener: l, ReadHeaderTimeout: apiReadHeaderTimeout}
	}
	m.apiAddr = l.Addr()

	useTLS := len(cfg.Cert) > 0 || len(cfg.Key) > 0
	httpServer := &http.Server{
		Handler:           m.httpMux,
		ReadHeaderTimeout: apiReadHeaderTimeout,
		IdleTimeout:       apiIdleTimeout,
		ErrorLog:          zap.NewStdLog(m.logger.Named("http")),
	}
	h2s := &http2.Server{IdleTimeout: apiIdleTimeout}
	if useTLS {
		cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			l.Close()
			return fmt.Errorf("failed to load certificate, %w", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		if err := http2.ConfigureServer(httpServer, h2s); err != nil {
			l.Close()
			return fmt.Errorf("failed to configure http2 server, %w", err)
		}
	} else {
		httpServer.Handler = h2c.NewHandler(m.httpMux, h2s)
	}

	m.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			m.logger.Info("starting api http server", zap.Stringer("addr", l.Addr()), zap.Bool("tls", useTLS))
			if useTLS {
				errChan <- httpServer.ServeTLS(l, "", "")
			} else {
				errChan <- httpServer.Serve(l)
			}
		}()
		select {
		case err := <-errChan:
			m.sc.SendCloseSignal(fmt.Errorf("api server exited, %w", err))
		case <-closeSignal:
			_ = httpServer.Close()
		}
	})
	return nil
}

func (m *PSLookup) startDNSServer(cfg *DNSConfig) error {
	handlerOpts := dns_handler.PSLHandlerOpts{
		Looker: m.service,
		Zone:   cfg.Zone,
		TTL:    cfg.TTL,
		Logger: m.logger.Named("dns"),
	}
	var limiter *rate_limiter.Limiter
	if rl := cfg.RateLimit; rl != nil {
		if err := rl.Validate(); err != nil {
			return fmt.Errorf("invalid rate limit, %w", err)
		}
		limiter = rate_limiter.NewLimiter(*rl)
		handlerOpts.Limiter = limiter
	}
	closeLimiter := func() {
		if limiter != nil {
			_ = limiter.Close()
		}
	}

	handler, err := dns_handler.NewPSLHandler(handlerOpts)
	if err != nil {
		closeLimiter()
		return err
	}

	s := server.NewServer(server.ServerOpts{
		DNSHandler:  handler,
		IdleTimeout: time.Duration(cfg.IdleTimeout) * time.Second,
		Logger:      m.logger.Named("dns_server"),
	})
	errChan := make(chan error, len(cfg.Listeners))
	for _, addr := range cfg.Listeners {
		la, err := s.Listen(context.Background(), addr, cfg.ReusePort, errChan)
		if err != nil {
			_ = s.Close()
			closeLimiter()
			return fmt.Errorf("failed to listen on %s, %w", addr, err)
		}
		m.logger.Info("dns server started", zap.String("listener", addr), zap.Stringer("addr", la), zap.String("zone", handler.Zone()))
		m.dnsAddrs = append(m.dnsAddrs, la)
	}

	m.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		defer closeLimiter()
		select {
		case err := <-errChan:
			if !errors.Is(err, server.ErrServerClosed) {
				m.sc.SendCloseSignal(fmt.Errorf("dns server exited, %w", err))
			}
			_ = s.Close()
		case <-closeSignal:
			_ = s.Close()
		}
	})
	return nil
}
