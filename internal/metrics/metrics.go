// Package metrics defines the Prometheus collectors exported by the local
// server. Under Lambda the counters are updated but not scraped.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/schoolmaps/drivelink/internal/apperr"
)

const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelEvent  = "event"
	LabelResult = "result"
)

// Link events.
const (
	EventLinked       = "linked"
	EventUnlinked     = "unlinked"
	EventInvalidGrant = "invalid_grant"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivelink_http_requests_total",
			Help: "Total API requests by method, path and status.",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivelink_http_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Drive metrics
var (
	LinkEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivelink_link_events_total",
			Help: "Drive link state changes.",
		},
		[]string{LabelEvent},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivelink_uploads_total",
			Help: "Upload attempts by result kind.",
		},
		[]string{LabelResult},
	)

	Deletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivelink_deletes_total",
			Help: "Delete attempts by result kind.",
		},
		[]string{LabelResult},
	)

	UploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivelink_uploaded_bytes_total",
			Help: "Bytes written to Drive.",
		},
	)
)

// Result labels a finished operation: "ok" on success, otherwise the error kind.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(apperr.KindOf(err).String())
}
