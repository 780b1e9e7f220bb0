package telemetry

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics — счётчики и гистограммы одного запуска пайплайна.
type Metrics struct {
	registry *prometheus.Registry

	// TasksTotal — задачи по этапу и финальному статусу.
	TasksTotal *prometheus.CounterVec

	// InvocationsTotal — вызовы внешних инструментов по программе и исходу.
	InvocationsTotal *prometheus.CounterVec

	// StageDuration — продолжительность этапов в секундах.
	StageDuration *prometheus.HistogramVec

	// RunningProcesses — число внешних процессов, выполняющихся сейчас.
	RunningProcesses prometheus.Gauge
}

// NewMetrics создаёт реестр метрик запуска.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ampliflow",
			Name:      "tasks_total",
			Help:      "Pipeline tasks by stage and final status.",
		}, []string{"stage", "status"}),
		InvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ampliflow",
			Name:      "tool_invocations_total",
			Help:      "External tool invocations by program and outcome.",
		}, []string{"program", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ampliflow",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"stage"}),
		RunningProcesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ampliflow",
			Name:      "running_processes",
			Help:      "External tool processes currently executing.",
		}),
	}

	m.registry.MustRegister(
		m.TasksTotal,
		m.InvocationsTotal,
		m.StageDuration,
		m.RunningProcesses,
	)
	return m
}

// WriteTextfile выгружает метрики в текстовом формате prometheus.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
