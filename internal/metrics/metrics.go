// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConversionsTotal counts finished conversion attempts by outcome:
	// success, probe_failure, codec_failure, upload_failure.
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidiooh",
		Name:      "conversions_total",
		Help:      "Conversion attempts by outcome.",
	}, []string{"outcome"})

	// GateDenialsTotal counts pre-flight denials by reason.
	GateDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidiooh",
		Name:      "gate_denials_total",
		Help:      "Quota gate denials by reason.",
	}, []string{"reason"})

	// TranscodeDuration observes wall-clock encode time in seconds.
	TranscodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vidiooh",
		Name:      "transcode_duration_seconds",
		Help:      "Encode duration in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
