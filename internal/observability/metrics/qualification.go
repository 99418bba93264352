// Package metrics содержит Prometheus-метрики обработки раундов конкурсов.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QualificationMetrics: метрики процессора квалификации.
// Все методы безопасны для nil-получателя, чтобы процессор работал без метрик в тестах.
type QualificationMetrics struct {
	RoundsProcessedTotal       prometheus.Counter
	EntriesEvaluatedTotal      *prometheus.CounterVec // result: qualified, disqualified
	CompetitionsFinalizedTotal *prometheus.CounterVec // kind: no_participants, no_submissions, no_qualifiers
	SweepErrorsTotal           *prometheus.CounterVec // stage: load, competition, round, report
	SweepDuration              prometheus.Histogram
	LastSweepTimestamp         prometheus.Gauge
}

// NewQualificationMetrics создает метрики и регистрирует их в registry
func NewQualificationMetrics(registry *prometheus.Registry) (*QualificationMetrics, error) {
	m := &QualificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register qualification metrics: %w", err)
	}
	return m, nil
}

func (m *QualificationMetrics) initMetrics() {
	m.RoundsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "competition_rounds_processed_total",
		Help: "Total number of competition rounds processed by the qualification sweep",
	})

	m.EntriesEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_entries_evaluated_total",
			Help: "Total number of round entries evaluated, by qualification result",
		},
		[]string{"result"},
	)

	m.CompetitionsFinalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_finalized_total",
			Help: "Total number of competitions finalized by the sweep, by completion kind",
		},
		[]string{"kind"},
	)

	m.SweepErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_sweep_errors_total",
			Help: "Total number of errors during qualification sweeps, by stage",
		},
		[]string{"stage"},
	)

	m.SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "competition_sweep_duration_seconds",
		Help:    "Duration of a full qualification sweep",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	m.LastSweepTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "competition_sweep_last_run_timestamp_seconds",
		Help: "Unix timestamp of the last finished qualification sweep",
	})
}

// RecordRoundProcessed учитывает обработанный раунд и результаты его работ
func (m *QualificationMetrics) RecordRoundProcessed(qualified, disqualified int) {
	if m == nil {
		return
	}
	m.RoundsProcessedTotal.Inc()
	m.EntriesEvaluatedTotal.WithLabelValues("qualified").Add(float64(qualified))
	m.EntriesEvaluatedTotal.WithLabelValues("disqualified").Add(float64(disqualified))
}

// RecordFinalized учитывает завершение конкурса
func (m *QualificationMetrics) RecordFinalized(kind string) {
	if m == nil {
		return
	}
	m.CompetitionsFinalizedTotal.WithLabelValues(kind).Inc()
}

// RecordError учитывает ошибку на стадии stage
func (m *QualificationMetrics) RecordError(stage string) {
	if m == nil {
		return
	}
	m.SweepErrorsTotal.WithLabelValues(stage).Inc()
}

// ObserveSweep фиксирует длительность и время окончания прогона
func (m *QualificationMetrics) ObserveSweep(duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(duration.Seconds())
	m.LastSweepTimestamp.Set(float64(finishedAt.Unix()))
}

// Collect implements the prometheus.Collector interface.
func (m *QualificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RoundsProcessedTotal.Collect(ch)
	m.EntriesEvaluatedTotal.Collect(ch)
	m.CompetitionsFinalizedTotal.Collect(ch)
	m.SweepErrorsTotal.Collect(ch)
	m.SweepDuration.Collect(ch)
	m.LastSweepTimestamp.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *QualificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RoundsProcessedTotal.Describe(ch)
	m.EntriesEvaluatedTotal.Describe(ch)
	m.CompetitionsFinalizedTotal.Describe(ch)
	m.SweepErrorsTotal.Describe(ch)
	m.SweepDuration.Describe(ch)
	m.LastSweepTimestamp.Describe(ch)
}
