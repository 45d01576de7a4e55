// Package observability holds the Prometheus collectors of the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ServiceName = "estatein"
)

var (
	DocumentChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "documents", "changes_total"),
		Help: "Committed document writes by collection and change type",
	}, []string{"collection", "type"})
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "media", "uploads_total"),
		Help: "Image uploads by folder and result",
	}, []string{"folder", "result"})
	MediaUploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "media", "upload_duration_seconds"),
		Help:    "Duration of single image uploads in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"folder"})
	ChatReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "chat", "replies_total"),
		Help: "Assistant replies by source (keyword, model, fallback)",
	}, []string{"source"})
	LiveSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "feed", "subscribers"),
		Help: "Open live collection subscriptions",
	}, []string{"collection"})
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "eventbus", "dropped_total"),
		Help: "Change events dropped because the bus buffer was full",
	})
)
