package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arcmd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Name:      "frames_decoded_total",
			Help:      "Command frames decoded, by project and class.",
		},
		[]string{"project", "class"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Name:      "decode_errors_total",
			Help:      "Command frames dropped, by error kind.",
		},
		[]string{"kind"},
	)
	listenerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Name:      "listener_failures_total",
			Help:      "Listener errors and panics caught at dispatch.",
		},
		[]string{"project", "class"},
	)
	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "arcmd",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent delivering one command to its listeners.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
	)
	sessionAcks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Subsystem: "session",
			Name:      "acks_total",
			Help:      "Network acknowledgements, by direction.",
		},
		[]string{"direction"},
	)
	sessionRetransmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Subsystem: "session",
			Name:      "retransmits_total",
			Help:      "Acknowledged frames sent again, by buffer.",
		},
		[]string{"buffer"},
	)
	sessionDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Subsystem: "session",
			Name:      "frames_dropped_total",
			Help:      "Network frames dropped, by reason.",
		},
		[]string{"reason"},
	)
	bridgePublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcmd",
			Subsystem: "bridge",
			Name:      "published_total",
			Help:      "Commands published to the message bus, by outcome.",
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesDecoded, decodeErrors, listenerFailures, dispatchDuration,
			sessionAcks, sessionRetransmits, sessionDropped,
			bridgePublished,
		)
	})
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameDecoded(project, class string) {
	RegisterMetrics()
	framesDecoded.WithLabelValues(project, class).Inc()
}

func RecordDecodeError(kind string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(kind).Inc()
}

func RecordListenerFailure(project, class string) {
	RegisterMetrics()
	listenerFailures.WithLabelValues(project, class).Inc()
}

func RecordDispatch(duration time.Duration) {
	RegisterMetrics()
	dispatchDuration.Observe(duration.Seconds())
}

func RecordSessionAck(direction string) {
	RegisterMetrics()
	sessionAcks.WithLabelValues(direction).Inc()
}

func RecordRetransmit(buffer uint8) {
	RegisterMetrics()
	sessionRetransmits.WithLabelValues(strconv.Itoa(int(buffer))).Inc()
}

func RecordFrameDropped(reason string) {
	RegisterMetrics()
	sessionDropped.WithLabelValues(reason).Inc()
}

func RecordBridgePublish(success bool) {
	RegisterMetrics()
	bridgePublished.WithLabelValues(strconv.FormatBool(success)).Inc()
}
