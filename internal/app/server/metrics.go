package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hradmin/internal/platform/metrics"
)

func writeMetrics(w http.ResponseWriter, collector *metrics.Collector) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
		slog.Warn("write metrics failed", "err", err)
	}
}
