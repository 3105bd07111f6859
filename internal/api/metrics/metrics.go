// Package metrics defines the custom Prometheus metrics of the docsync
// server. HTTP request metrics come from the echoprometheus middleware; the
// ones here describe document and login outcomes.
//
// All metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docsync"

// Result label values.
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultTooLarge = "too_large"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// DocumentReadsTotal counts document reads.
// Label:
//   - result: "ok", "invalid" or "error"
var DocumentReadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_reads_total",
		Help:      "Total number of document reads, by result.",
	},
	[]string{"result"},
)

// DocumentWritesTotal counts document replaces.
// Label:
//   - result: "ok", "conflict", "too_large", "invalid" or "error"
var DocumentWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_writes_total",
		Help:      "Total number of document replaces, by result.",
	},
	[]string{"result"},
)

var DocumentWriteDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "document_write_duration_seconds",
		Help:      "Duration of a document replace including the storage round trip.",
		Buckets:   prometheus.DefBuckets,
	},
)

// DocumentContentBytes is the size of the most recently stored body. It is
// not labelled by document since ids come from clients.
var DocumentContentBytes = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "document_content_bytes",
		Help:      "Size in bytes of the most recently stored content.",
	},
)

// LoginAttemptsTotal counts credential checks.
// Label:
//   - result: "accepted", "rejected" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
