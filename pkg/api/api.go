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

// Package api serves public suffix lookups over http.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/lookup"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultReloadTimeout = time.Minute

// Service looks up names and reports the list in use.
// *lookup.Service implements it.
type Service interface {
	Lookup(name string) (lookup.Result, error)
	Snapshot() *publicsuffix.Snapshot
}

// Reloader forces a list reload. list_source.Source implements it.
type Reloader interface {
	Reload(ctx context.Context) error
}

type Opts struct {
	// Service is required.
	Service Service

	// Reloader is optional. Without it the reload endpoint responds
	// with 501.
	Reloader Reloader

	Logger *zap.Logger
}

type handler struct {
	opts Opts
}

// NewRouter returns the api router. It can be mounted to another router.
func NewRouter(opts Opts) (*chi.Mux, error) {
	if opts.Service == nil {
		return nil, errors.New("nil service")
	}
	if opts.Logger == nil {
		opts.Logger = mlog.Nop()
	}
	h := &handler{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lookup/{name}", h.lookup)
		r.Get("/suffix/{name}", h.suffix)
		r.Get("/domain/{name}", h.domain)
		r.Get("/list", h.list)
		r.Post("/list/reload", h.reload)
	})
	return r, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type suffixResp struct {
	Suffix string            `json:"suffix"`
	Type   publicsuffix.Type `json:"type"`
	Known  bool              `json:"known"`
}

type domainResp struct {
	Domain string            `json:"domain"`
	Suffix string            `json:"suffix"`
	Type   publicsuffix.Type `json:"type"`
}

type listResp struct {
	Fingerprint string             `json:"fingerprint"`
	Generation  uint64             `json:"generation"`
	LoadedAt    time.Time          `json:"loaded_at"`
	Size        int                `json:"size"`
	Stats       publicsuffix.Stats `json:"stats"`
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) readyz(w http.ResponseWriter, _ *http.Request) {
	if h.opts.Service.Snapshot() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(lookup.ErrNoList.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) lookup(w http.ResponseWriter, req *http.Request) {
	res, ok := h.doLookup(w, req)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) suffix(w http.ResponseWriter, req *http.Request) {
	res, ok := h.doLookup(w, req)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, suffixResp{Suffix: res.Suffix, Type: res.Type, Known: res.Known})
}

func (h *handler) domain(w http.ResponseWriter, req *http.Request) {
	res, ok := h.doLookup(w, req)
	if !ok {
		return
	}
	if !res.HasDomain() {
		h.writeError(w, http.StatusUnprocessableEntity, publicsuffix.ErrNoRegistrableDomain)
		return
	}
	h.writeJSON(w, http.StatusOK, domainResp{Domain: res.Domain, Suffix: res.Suffix, Type: res.Type})
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	snap := h.opts.Service.Snapshot()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, lookup.ErrNoList)
		return
	}
	h.writeJSON(w, http.StatusOK, listRespOf(snap))
}

func (h *handler) reload(w http.ResponseWriter, req *http.Request) {
	if h.opts.Reloader == nil {
		h.writeError(w, http.StatusNotImplemented, errors.New("list reload is not available"))
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), defaultReloadTimeout)
	defer cancel()
	if err := h.opts.Reloader.Reload(ctx); err != nil {
		h.opts.Logger.Warn("list reload failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	h.opts.Logger.Info("list reloaded by api")
	h.list(w, req)
}

// doLookup writes the error response and returns false if the lookup
// failed.
func (h *handler) doLookup(w http.ResponseWriter, req *http.Request) (lookup.Result, bool) {
	name := chi.URLParam(req, "name")
	res, err := h.opts.Service.Lookup(name)
	if err != nil {
		h.writeError(w, statusOf(err), err)
		return lookup.Result{}, false
	}
	return res, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, publicsuffix.ErrEmptyInput), errors.Is(err, publicsuffix.ErrEncoding):
		return http.StatusBadRequest
	case errors.Is(err, lookup.ErrNoList):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func listRespOf(snap *publicsuffix.Snapshot) listResp {
	return listResp{
		Fingerprint: snap.Fingerprint,
		Generation:  snap.Generation,
		LoadedAt:    snap.LoadedAt,
		Size:        snap.Size,
		Stats:       snap.List.Stats(),
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResp{Error: err.Error()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.opts.Logger.Debug("failed to write response", zap.Error(err))
	}
}
