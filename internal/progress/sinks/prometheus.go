package sinks

import (
	"context"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/progress-relay/internal/progress"
)

// PrometheusSink exports the latest report as gauges and counts reports and
// completions.
type PrometheusSink struct {
	value       prometheus.Gauge
	target      prometheus.Gauge
	percent     prometheus.Gauge
	reports     prometheus.Counter
	completions prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_value",
			Help: "Current progress value from the latest report.",
		}),
		target: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_target",
			Help: "Current progress target; NaN while no target is set.",
		}),
		percent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_percent",
			Help: "Percent complete; NaN while undefined.",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_reports_total",
			Help: "Reports received by the sink.",
		}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_completions_total",
			Help: "Reports whose value reached the target.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.value,
		s.target,
		s.percent,
		s.reports,
		s.completions,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch; the last report wins for
// the gauges.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Report) error {
	for _, r := range batch {
		s.reports.Inc()
		if r.Done() {
			s.completions.Inc()
		}
	}
	if len(batch) == 0 {
		return nil
	}
	last := batch[len(batch)-1]
	s.value.Set(float64(last.Value()))
	s.target.Set(optional(last.Target()))
	s.percent.Set(optional(last.Percent()))
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func optional(v int64, ok bool) float64 {
	if !ok {
		return math.NaN()
	}
	return float64(v)
}
