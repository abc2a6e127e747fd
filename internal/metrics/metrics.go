/*
   Khabarchin - Telegram news watchdog and approval pipeline
   Copyright (C) 2025  Khabarchin contributors

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package metrics exposes the pipeline's Prometheus collectors, served on
// the dashboard's /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	MessagesSeen     prometheus.Counter
	MessagesAccepted *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	Candidates       *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	QueueShed        prometheus.Counter
	SendFailures     prometheus.Counter
	Published        prometheus.Counter
	Expired          prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		MessagesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khabarchin_messages_seen_total",
			Help: "Source messages inspected by the pipeline",
		}),
		MessagesAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "khabarchin_messages_accepted_total",
			Help: "Messages that cleared the lexical classifier, by category",
		}, []string{"category"}),
		MessagesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "khabarchin_messages_dropped_total",
			Help: "Messages dropped before candidate creation, by reason",
		}, []string{"reason"}),
		Candidates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "khabarchin_candidates_total",
			Help: "Candidates by resolution",
		}, []string{"status"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "khabarchin_queue_depth",
			Help: "Entries waiting in the delivery queue",
		}),
		QueueShed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khabarchin_queue_shed_total",
			Help: "Low-priority entries refused while the queue was congested",
		}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khabarchin_send_failures_total",
			Help: "Approval prompts that failed to send",
		}),
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khabarchin_published_total",
			Help: "Candidates published to the target channel",
		}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "khabarchin_expired_total",
			Help: "Candidates expired by the sweep",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
