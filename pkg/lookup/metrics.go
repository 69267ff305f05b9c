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

package lookup

import (
	"errors"
	"time"

	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects lookup metrics. A nil *Metrics is valid and
// collects nothing.
type Metrics struct {
	lookupTotal    *prometheus.CounterVec
	cacheHitTotal  prometheus.Counter
	cacheMissTotal prometheus.Counter
	latency        prometheus.Histogram
}

// NewMetrics creates lookup metrics and registers them, together with
// list gauges that read h, to reg.
func NewMetrics(reg prometheus.Registerer, h *publicsuffix.Holder) *Metrics {
	m := &Metrics{
		lookupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookup_total",
			Help: "The total number of lookups by outcome",
		}, []string{"outcome"}),
		cacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hit_total",
			Help: "The total number of lookups answered from the cache",
		}),
		cacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_miss_total",
			Help: "The total number of lookups not found in the cache",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lookup_latency_microsecond",
			Help:    "The lookup latency in microsecond",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}),
	}

	listRules := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "list_rules",
		Help: "The number of rules of the current list",
	}, func() float64 {
		if s := h.Load(); s != nil {
			return float64(s.List.Len())
		}
		return 0
	})
	listGeneration := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "list_generation",
		Help: "The number of lists loaded since start",
	}, func() float64 {
		if s := h.Load(); s != nil {
			return float64(s.Generation)
		}
		return 0
	})
	reg.MustRegister(m.lookupTotal, m.cacheHitTotal, m.cacheMissTotal, m.latency, listRules, listGeneration)
	return m
}

const (
	outcomeOK         = "ok"
	outcomeNoDomain   = "no_domain"
	outcomeEmptyInput = "empty_input"
	outcomeEncoding   = "encoding_error"
	outcomeNoList     = "no_list"
	outcomeError      = "error"
)

func outcomeOf(r Result, err error) string {
	switch {
	case err == nil && r.HasDomain():
		return outcomeOK
	case err == nil:
		return outcomeNoDomain
	case errors.Is(err, publicsuffix.ErrEmptyInput):
		return outcomeEmptyInput
	case errors.Is(err, publicsuffix.ErrEncoding):
		return outcomeEncoding
	case errors.Is(err, ErrNoList):
		return outcomeNoList
	default:
		return outcomeError
	}
}

func (m *Metrics) observe(r Result, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.lookupTotal.WithLabelValues(outcomeOf(r, err)).Inc()
	m.latency.Observe(float64(d.Microseconds()))
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHitTotal.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMissTotal.Inc()
	}
}
