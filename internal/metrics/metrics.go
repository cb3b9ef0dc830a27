package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resumebuilder"

var (
	resumeSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resume_saves_total",
			Help:      "简历保存次数，按触发来源划分。",
		},
		[]string{"trigger"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "exports_total",
			Help:      "PDF 导出次数，按结果划分。",
		},
		[]string{"result"},
	)

	exportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "单次 PDF 导出耗时（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// ObserveSave 记录一次简历保存。
func ObserveSave(trigger string) {
	resumeSavesTotal.WithLabelValues(trigger).Inc()
}

// ObserveExport 记录一次导出的结果与耗时。
func ObserveExport(err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	exportsTotal.WithLabelValues(result).Inc()
	exportDuration.Observe(seconds)
}
