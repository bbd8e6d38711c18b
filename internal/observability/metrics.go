package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reply outcomes recorded per stream item.
const (
	OutcomeDecoded       = "decoded"
	OutcomeDecodeError   = "decode_error"
	OutcomeSkipped       = "skipped"
	OutcomeProtocolError = "protocol_error"
	OutcomeTransport     = "transport_error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ethtoolctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ethtoolctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	netlinkRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ethtoolctl",
			Subsystem: "netlink",
			Name:      "requests_total",
			Help:      "ethtool netlink requests by command, mode and submission result.",
		},
		[]string{"command", "mode", "submitted"},
	)
	netlinkReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ethtoolctl",
			Subsystem: "netlink",
			Name:      "replies_total",
			Help:      "ethtool reply stream items by request command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	netlinkStreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ethtoolctl",
			Subsystem: "netlink",
			Name:      "stream_duration_seconds",
			Help:      "Time from submission to end of the reply stream.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"command", "mode"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, netlinkRequests, netlinkReplies, netlinkStreamDuration)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// Mode labels a request as a dump or a single target request.
func Mode(isDump bool) string {
	if isDump {
		return "dump"
	}
	return "single"
}

func RecordRequest(command string, isDump, submitted bool) {
	RegisterMetrics()
	netlinkRequests.WithLabelValues(command, Mode(isDump), strconv.FormatBool(submitted)).Inc()
}

func RecordReply(command, outcome string) {
	RegisterMetrics()
	netlinkReplies.WithLabelValues(command, outcome).Inc()
}

func RecordStream(command string, isDump bool, duration time.Duration) {
	RegisterMetrics()
	netlinkStreamDuration.WithLabelValues(command, Mode(isDump)).Observe(duration.Seconds())
}
