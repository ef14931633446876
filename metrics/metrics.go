// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports SCD30 measurements and poll failures to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the SCD30 metrics. It is a report.Sink.
type Collector struct {
	values      *prometheus.GaugeVec
	readErrors  prometheus.Counter
	notReady    prometheus.Counter
	lastSuccess prometheus.Gauge
	healthy     atomic.Bool
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		values: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scd30_value",
				Help: "SCD30 sensor values with type and unit labels",
			},
			[]string{"type", "unit"},
		),
		readErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scd30_read_errors_total",
				Help: "Total number of failed sensor reads",
			},
		),
		notReady: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scd30_not_ready_total",
				Help: "Total number of polls without a new measurement",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scd30_last_success_timestamp_seconds",
				Help: "Unix time of the last successful read",
			},
		),
	}
	for _, col := range []prometheus.Collector{c.values, c.readErrors, c.notReady, c.lastSuccess} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Publish implements report.Sink.
func (c *Collector) Publish(m scd30.Measurement) error {
	c.values.WithLabelValues("co2", "ppm").Set(float64(m.CO2))
	c.values.WithLabelValues("temperature", "°C").Set(float64(m.Temperature))
	c.values.WithLabelValues("humidity", "%").Set(float64(m.Humidity))
	c.lastSuccess.SetToCurrentTime()
	c.healthy.Store(true)
	return nil
}

// IncReadError counts a failed read and marks the sensor unhealthy until the
// next successful read.
func (c *Collector) IncReadError() {
	c.readErrors.Inc()
	c.healthy.Store(false)
}

// IncNotReady counts a poll that found no new measurement.
func (c *Collector) IncNotReady() {
	c.notReady.Inc()
}

// Healthy reports whether the last read succeeded.
func (c *Collector) Healthy() bool {
	return c.healthy.Load()
}

// Handler serves the metrics gathered from g on /metrics and the sensor
// health on /healthz.
func (c *Collector) Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !c.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("sensor error"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

var _ report.Sink = &Collector{}
