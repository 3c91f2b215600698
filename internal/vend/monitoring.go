// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package vend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records callback outcomes.
type Metrics struct {
	callbacksTotal *prometheus.CounterVec
}

// NewMetrics creates the callback metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracevend_callbacks_total",
				Help: "Total number of authorization callbacks handled, by outcome: ok or the stage that failed",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.callbacksTotal)
	return m
}

// RecordCallback counts one handled callback. outcome is "ok" or the name of
// the stage that failed.
func (m *Metrics) RecordCallback(outcome string) {
	m.callbacksTotal.WithLabelValues(outcome).Inc()
}
