// Package observe holds the Prometheus instrumentation for ripple.
package observe

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnections tracks the current size of the broadcast hub.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_ws_connections",
		Help: "Live authenticated websocket connections.",
	})

	// BroadcastDeliveries counts envelopes enqueued to clients during fan-out.
	BroadcastDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_broadcast_deliveries_total",
		Help: "Envelopes delivered to client send queues.",
	})

	// BroadcastDrops counts envelopes dropped because a client queue was
	// full or the client was shutting down.
	BroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_broadcast_drops_total",
		Help: "Envelopes dropped during fan-out due to backpressure.",
	})

	// HTTPRequests counts requests by method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "status"})
)

// ObserveHTTP records one served request.
func ObserveHTTP(method string, status int) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
