// Package metrics exposes the recorder/indexer counters and gauges spec.md
// mentions in passing (§4.8's processing rate, §5's resource model) as real
// Prometheus collectors, grounded on madpsy-ka9q_ubersdr/prometheus.go.
// Serving them over HTTP is left to the (out-of-scope) web server; this
// package just hands back a prometheus.Gatherer for embedding.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"
)

// Registry bundles every collector this module updates.
type Registry struct {
	reg *prometheus.Registry

	FramesCaptured   *prometheus.CounterVec
	FramesSkipped    *prometheus.CounterVec
	ChunksFinalized  *prometheus.CounterVec
	CurrentChunkAge  *prometheus.GaugeVec
	OcrPendingFrames prometheus.Gauge
	OcrProcessedRate prometheus.Gauge
	AudioPending     prometheus.Gauge
	AudioProcessRate prometheus.Gauge
	DiskFreeRatio    *prometheus.GaugeVec
}

// NewRegistry creates and registers every collector.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		FramesCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoire",
			Name:      "frames_captured_total",
			Help:      "Frames retained (post-dedup) per monitor.",
		}, []string{"monitor"}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoire",
			Name:      "frames_skipped_total",
			Help:      "Frames dropped by perceptual-hash dedup per monitor.",
		}, []string{"monitor"}),
		ChunksFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoire",
			Name:      "video_chunks_finalized_total",
			Help:      "Video chunks closed out per monitor.",
		}, []string{"monitor"}),
		CurrentChunkAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "memoire",
			Name:      "current_chunk_age_seconds",
			Help:      "Age of the currently-open video chunk per monitor.",
		}, []string{"monitor"}),
		OcrPendingFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memoire",
			Name:      "ocr_pending_frames",
			Help:      "Frames captured but not yet OCR'd.",
		}),
		OcrProcessedRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memoire",
			Name:      "ocr_processed_frames_per_second",
			Help:      "Rolling OCR throughput.",
		}),
		AudioPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memoire",
			Name:      "audio_pending_chunks",
			Help:      "Audio chunks captured but not yet transcribed.",
		}),
		AudioProcessRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memoire",
			Name:      "audio_processed_chunks_per_second",
			Help:      "Rolling ASR throughput.",
		}),
		DiskFreeRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "memoire",
			Name:      "data_dir_disk_free_ratio",
			Help:      "Fraction of free space remaining on the data directory's filesystem.",
		}, []string{"data_dir"}),
	}

	reg.MustRegister(
		r.FramesCaptured, r.FramesSkipped, r.ChunksFinalized, r.CurrentChunkAge,
		r.OcrPendingFrames, r.OcrProcessedRate, r.AudioPending, r.AudioProcessRate,
		r.DiskFreeRatio,
	)
	return r
}

// Gatherer exposes the underlying prometheus.Gatherer for embedding in
// whatever HTTP server a caller wires up.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// DiskUsage reports the fraction of free space remaining on the filesystem
// backing dataDir, for callers outside the recorder process (cmd/memoire-monitor
// has no access to the recorder's in-process Registry, so it computes this
// itself rather than scraping). Same gopsutil call the recorder's own
// disk-free check makes before opening a chunk.
func DiskUsage(dataDir string) (float64, error) {
	usage, err := disk.Usage(dataDir)
	if err != nil {
		return 0, err
	}
	return 1 - usage.UsedPercent/100, nil
}
