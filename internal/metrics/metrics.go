// Package metrics exposes Prometheus counters for inspection runs.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jward/copper/internal/cop"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	FilesInspectedTotal prometheus.Counter
	OffensesTotal       *prometheus.CounterVec
	RuleErrorsTotal     *prometheus.CounterVec
	EditsTotal          *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
	InspectDuration     prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		FilesInspectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copper_files_inspected_total",
				Help: "Total number of files inspected",
			},
		),
		OffensesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copper_offenses_total",
				Help: "Total number of offenses reported",
			},
			[]string{"cop", "severity"},
		),
		RuleErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copper_rule_errors_total",
				Help: "Total number of rule evaluation errors",
			},
			[]string{"cop"},
		),
		EditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copper_edits_total",
				Help: "Total number of staged edits by outcome",
			},
			[]string{"result"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copper_cache_lookups_total",
				Help: "Total number of result cache lookups",
			},
			[]string{"result"},
		),
		InspectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "copper_inspect_duration_seconds",
				Help:    "Time spent inspecting one file, all passes included",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.FilesInspectedTotal,
		m.OffensesTotal,
		m.RuleErrorsTotal,
		m.EditsTotal,
		m.CacheLookupsTotal,
		m.InspectDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m, nil
}

// ObserveFile records one inspected file.
func (m *Metrics) ObserveFile(d time.Duration, offenses []cop.Offense, ruleErrors []error) {
	if m == nil {
		return
	}
	m.FilesInspectedTotal.Inc()
	m.InspectDuration.Observe(d.Seconds())
	for _, o := range offenses {
		m.OffensesTotal.WithLabelValues(o.Rule, o.Severity.String()).Inc()
	}
	for _, err := range ruleErrors {
		m.RuleErrorsTotal.WithLabelValues(ruleName(err)).Inc()
	}
}

// ObserveEdits records the outcome of one Finalize call.
func (m *Metrics) ObserveEdits(applied, rejected int) {
	if m == nil {
		return
	}
	m.EditsTotal.WithLabelValues("applied").Add(float64(applied))
	m.EditsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// ObserveCacheLookup records a cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// WriteToTextfile writes every gathered metric to path in the text
// exposition format. It fails when the registerer is not also a gatherer.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil || m.gatherer == nil {
		return fmt.Errorf("metrics: no gatherer to write %s", path)
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func ruleName(err error) string {
	var rerr *cop.RuleEvaluationError
	if errors.As(err, &rerr) {
		return rerr.Rule
	}
	return "unknown"
}
