package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector - счетчики модуля оборудования на собственном реестре.
type Collector struct {
	registry *prometheus.Registry

	historyAppends     *prometheus.CounterVec
	conflicts          *prometheus.CounterVec
	invalidTransitions prometheus.Counter
	cacheLookups       *prometheus.CounterVec
	importedRows       *prometheus.CounterVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		historyAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equipment_history_appends_total",
				Help: "Записи, добавленные в историю оборудования",
			},
			[]string{"type", "status_change"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equipment_conflicts_total",
				Help: "Операции, отклоненные из-за конфликта",
			},
			[]string{"operation"},
		),
		invalidTransitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "equipment_activity_invalid_transitions_total",
				Help: "Отклоненные переходы статуса активности",
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equipment_allocation_cache_lookups_total",
				Help: "Обращения к кешу закреплений",
			},
			[]string{"result"},
		),
		importedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equipment_import_rows_total",
				Help: "Строки импорта оборудования",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.historyAppends,
		c.conflicts,
		c.invalidTransitions,
		c.cacheLookups,
		c.importedRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler отдает метрики в формате Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) HistoryAppended(entryType string, statusChange bool) {
	c.historyAppends.WithLabelValues(entryType, strconv.FormatBool(statusChange)).Inc()
}

func (c *Collector) Conflict(operation string) {
	c.conflicts.WithLabelValues(operation).Inc()
}

func (c *Collector) InvalidTransition() {
	c.invalidTransitions.Inc()
}

func (c *Collector) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) ImportRow(ok bool) {
	result := "rejected"
	if ok {
		result = "created"
	}
	c.importedRows.WithLabelValues(result).Inc()
}
