package repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики слоя хранения
// ============================================================
//
// Использование:
// - Grafana дашборды по латентности тяжелых запросов книги ордеров
// - Alertmanager на рост ошибок записи и длительность checkpoint

// WritesTotal - количество исполненных операторов записи по таблицам
var WritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "assetledger",
		Subsystem: "repository",
		Name:      "writes_total",
		Help:      "Total number of write statements executed",
	},
	[]string{"table"},
)

// WriteErrorsTotal - количество неудачных операторов записи по таблицам
var WriteErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "assetledger",
		Subsystem: "repository",
		Name:      "write_errors_total",
		Help:      "Total number of failed write statements",
	},
	[]string{"table"},
)

// QueryDuration - длительность тяжелых запросов чтения
var QueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "assetledger",
		Subsystem: "repository",
		Name:      "query_duration_seconds",
		Help:      "Duration of order book and trade history queries",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"query"},
)

// CheckpointDuration - длительность контрольной точки хранилища.
// Checkpoint держит глобальный барьер записи, поэтому длинные
// контрольные точки напрямую задерживают все записи
var CheckpointDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "assetledger",
		Subsystem: "repository",
		Name:      "checkpoint_duration_seconds",
		Help:      "Duration of repository checkpoints",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	},
)

// observeQuery возвращает таймер для наблюдения длительности запроса:
// defer observeQuery("open_orders").ObserveDuration()
func observeQuery(query string) *prometheus.Timer {
	return prometheus.NewTimer(QueryDuration.WithLabelValues(query))
}
