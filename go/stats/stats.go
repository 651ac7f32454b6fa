/*
Copyright 2026 The Shardgate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats provides the counters and timings exported by shardgate.
//
// Every variable is backed by a prometheus collector registered with the
// Exporter that created it. Exporters are explicit values so that tests and
// embedded engines do not share process-global state.
package stats

import (
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Exporter owns a prometheus registry and a metric namespace.
type Exporter struct {
	namespace string
	reg       *prometheus.Registry
}

// NewExporter returns an Exporter publishing under namespace.
func NewExporter(namespace string) *Exporter {
	return &Exporter{namespace: namespace, reg: prometheus.NewRegistry()}
}

// Registry returns the underlying registry, for use with promhttp.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.reg
}

// WriteText writes every registered metric in the prometheus text format.
func (e *Exporter) WriteText(w io.Writer) error {
	families, err := e.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// CountersWithSingleLabel tracks counters keyed by one label.
type CountersWithSingleLabel struct {
	vec   *prometheus.CounterVec
	label string
}

// NewCountersWithSingleLabel creates and registers a CountersWithSingleLabel.
func (e *Exporter) NewCountersWithSingleLabel(name, help, label string) *CountersWithSingleLabel {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: e.namespace,
		Name:      toSnakeCase(name),
		Help:      help,
	}, []string{label})
	e.reg.MustRegister(vec)
	return &CountersWithSingleLabel{vec: vec, label: label}
}

// Add adds delta to the counter for name.
func (c *CountersWithSingleLabel) Add(name string, delta int64) {
	c.vec.WithLabelValues(name).Add(float64(delta))
}

// Counter returns the collector for name.
func (c *CountersWithSingleLabel) Counter(name string) prometheus.Counter {
	return c.vec.WithLabelValues(name)
}

// LabelName returns the label name.
func (c *CountersWithSingleLabel) LabelName() string {
	return c.label
}

// CountersWithMultiLabels tracks counters keyed by several labels.
type CountersWithMultiLabels struct {
	vec    *prometheus.CounterVec
	labels []string
}

// NewCountersWithMultiLabels creates and registers a CountersWithMultiLabels.
func (e *Exporter) NewCountersWithMultiLabels(name, help string, labels []string) *CountersWithMultiLabels {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: e.namespace,
		Name:      toSnakeCase(name),
		Help:      help,
	}, labels)
	e.reg.MustRegister(vec)
	return &CountersWithMultiLabels{vec: vec, labels: labels}
}

// Add adds delta to the counter identified by names, one per label.
func (c *CountersWithMultiLabels) Add(names []string, delta int64) {
	c.vec.WithLabelValues(names...).Add(float64(delta))
}

// Counter returns the collector for names.
func (c *CountersWithMultiLabels) Counter(names ...string) prometheus.Counter {
	return c.vec.WithLabelValues(names...)
}

// Labels returns the label names.
func (c *CountersWithMultiLabels) Labels() []string {
	return c.labels
}

// Gauge is an unlabeled metric whose value can go up and down.
type Gauge struct {
	g prometheus.Gauge
}

// NewGauge creates and registers a Gauge.
func (e *Exporter) NewGauge(name, help string) *Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: e.namespace,
		Name:      toSnakeCase(name),
		Help:      help,
	})
	e.reg.MustRegister(g)
	return &Gauge{g: g}
}

// Add adds delta to the gauge.
func (v *Gauge) Add(delta int64) { v.g.Add(float64(delta)) }

// Set sets the gauge.
func (v *Gauge) Set(value int64) { v.g.Set(float64(value)) }

// Collector returns the prometheus gauge.
func (v *Gauge) Collector() prometheus.Gauge { return v.g }

// Timings records durations keyed by a category label.
type Timings struct {
	hist *prometheus.HistogramVec
}

// NewTimings creates and registers a Timings.
func (e *Exporter) NewTimings(name, help, label string) *Timings {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: e.namespace,
		Name:      toSnakeCase(name) + "_seconds",
		Help:      help,
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{label})
	e.reg.MustRegister(hist)
	return &Timings{hist: hist}
}

// Add records elapsed under name.
func (t *Timings) Add(name string, elapsed time.Duration) {
	t.hist.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Record records the time elapsed since startTime under name.
func (t *Timings) Record(name string, startTime time.Time) {
	t.Add(name, time.Since(startTime))
}

// toSnakeCase converts CamelCase metric names to snake_case.
func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
