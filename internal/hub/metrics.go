package hub

import (
	"sync/atomic"

	"github.com/marketpulse/core/internal/ingest"
	"github.com/marketpulse/core/internal/model"
)

// MetricsSink implements ingest.MetricsSink: every commit is turned into a
// metrics_update frame and broadcast to every subscriber, per §6's frame
// catalogue and §4.11's "used for market-state deltas and ingest-latency
// metrics" note on broadcast_global.
type MetricsSink struct {
	hub       *Hub
	totalDocs int64
}

func NewMetricsSink(h *Hub) *MetricsSink {
	return &MetricsSink{hub: h}
}

func (m *MetricsSink) OnCommit(record ingest.CommitRecord) {
	total := atomic.AddInt64(&m.totalDocs, int64(record.ArticleCount))
	m.hub.BroadcastGlobal(model.Frame{
		Type: "metrics_update",
		Data: model.MetricsUpdate{
			IndexingLatencyMS: record.LatencyMS,
			TotalDocs:         int(total),
		},
	})
}
