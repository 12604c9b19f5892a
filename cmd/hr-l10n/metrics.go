package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
)

// runMetrics is a per-run registry dumped in the node_exporter textfile
// format, so scheduled runs can be scraped without a server.
type runMetrics struct {
	reg      *prometheus.Registry
	rows     prometheus.Counter
	columns  prometheus.Counter
	sidecars prometheus.Counter
	unmapped *prometheus.CounterVec
	stages   *prometheus.GaugeVec
	duration prometheus.Gauge
}

func newRunMetrics(version string) *runMetrics {
	labels := prometheus.Labels{"version": version}
	m := &runMetrics{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hr_l10n_rows_total",
			Help:        "Rows written by the localization run.",
			ConstLabels: labels,
		}),
		columns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hr_l10n_columns_total",
			Help:        "Columns in the localized output.",
			ConstLabels: labels,
		}),
		sidecars: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hr_l10n_sidecar_columns_total",
			Help:        "Code sidecar columns added.",
			ConstLabels: labels,
		}),
		unmapped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hr_l10n_unmapped_values_total",
			Help:        "Cells kept untranslated because their value map had no entry.",
			ConstLabels: labels,
		}, []string{"column"}),
		stages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "hr_l10n_stage_duration_seconds",
			Help:        "Wall time of each pipeline stage.",
			ConstLabels: labels,
		}, []string{"stage"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hr_l10n_run_duration_seconds",
			Help:        "Wall time of the localization run.",
			ConstLabels: labels,
		}),
	}
	m.reg.MustRegister(m.rows, m.columns, m.sidecars, m.unmapped, m.stages, m.duration)
	return m
}

func (m *runMetrics) observe(rep *l10n.Report, elapsed time.Duration) {
	m.rows.Add(float64(rep.Rows))
	m.columns.Add(float64(rep.OutputColumns))
	m.sidecars.Add(float64(len(rep.Sidecars)))
	for _, c := range rep.Translated {
		if c.PassedThrough > 0 {
			m.unmapped.WithLabelValues(c.Column).Add(float64(c.PassedThrough))
		}
	}
	m.duration.Set(elapsed.Seconds())
}

func (m *runMetrics) observeStage(e l10n.StageEvent) error {
	m.stages.WithLabelValues(string(e.Stage)).Set(e.Elapsed.Seconds())
	return nil
}

func (m *runMetrics) writeTextfile(path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return withCode(exitWrite, fmt.Errorf("write metrics %s: %w", path, err))
	}
	return nil
}
