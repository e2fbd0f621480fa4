// Package metrics holds the Prometheus collectors for record imports and
// store traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthlog",
		Subsystem: "import",
		Name:      "records_total",
		Help:      "Rows processed by bulk imports broken down by outcome.",
	}, []string{"outcome"})

	importRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthlog",
		Subsystem: "import",
		Name:      "rejections_total",
		Help:      "Bulk imports rejected before any write broken down by reason.",
	}, []string{"reason"})

	storeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthlog",
		Subsystem: "store",
		Name:      "calls_total",
		Help:      "Record store calls issued by bulk operations broken down by op and result.",
	}, []string{"op", "result"})
)

// RecordImport counts rows written and rows dropped by validation.
func RecordImport(written, skipped int) {
	importedRecords.WithLabelValues("written").Add(float64(written))
	importedRecords.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordImportRejected counts an import refused as a whole.
func RecordImportRejected(reason string) {
	if reason == "" {
		reason = "other"
	}
	importRejections.WithLabelValues(reason).Inc()
}

// RecordStoreCall counts one chunked store call.
func RecordStoreCall(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeCalls.WithLabelValues(op, result).Inc()
}
