// Package observability provides logging, metrics, and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RoomDirectoryCalls counts active-room directory lookups by outcome
	// ("ok", "error").
	RoomDirectoryCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solcast_room_directory_calls_total",
		Help: "Total number of active-room directory lookups by outcome",
	}, []string{"outcome"})

	// CatalogSectionLatency records how long each catalog section takes to build.
	CatalogSectionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solcast_catalog_section_latency_seconds",
		Help:    "Catalog section build latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"section"})

	// PaymentCaptures counts capture attempts by outcome
	// ("credited", "duplicate", "not_completed", "error").
	PaymentCaptures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solcast_payment_captures_total",
		Help: "Total number of payment capture attempts by outcome",
	}, []string{"outcome"})

	// ChatMessagesTotal counts chat messages accepted per stream.
	ChatMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solcast_chat_messages_total",
		Help: "Total number of chat messages accepted",
	}, []string{"stream_id"})

	// GiftsTotal counts solcito gifts completed.
	GiftsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solcast_gifts_total",
		Help: "Total number of solcito gifts completed",
	})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solcast_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// TrackCatalogSection returns a function that records section build latency when called.
func TrackCatalogSection(section string) func() {
	start := time.Now()
	return func() {
		CatalogSectionLatency.WithLabelValues(section).Observe(time.Since(start).Seconds())
	}
}
