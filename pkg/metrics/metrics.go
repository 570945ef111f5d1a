package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatcher metrics
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_dispatches_total",
			Help: "Total number of dispatched actions by dispatcher and action type",
		},
		[]string{"dispatcher", "type"},
	)

	DispatchPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_dispatch_panics_total",
			Help: "Total number of callback panics recovered during dispatch",
		},
		[]string{"dispatcher"},
	)

	ReentrantDispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_reentrant_dispatches_total",
			Help: "Total number of rejected dispatches issued from inside a dispatch",
		},
		[]string{"dispatcher"},
	)

	// Store metrics
	StoreItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zerocon_store_items",
			Help: "Number of entities in each store snapshot",
		},
		[]string{"resource"},
	)

	StoreCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zerocon_store_count",
			Help: "Server-reported total count for each store",
		},
		[]string{"resource"},
	)

	StorePage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zerocon_store_page",
			Help: "Current page index of each paginated store",
		},
		[]string{"resource"},
	)

	StorePages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zerocon_store_pages",
			Help: "Number of pages of each paginated store",
		},
		[]string{"resource"},
	)

	ActionsIgnoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_store_actions_ignored_total",
			Help: "Total number of actions a store received but did not handle",
		},
		[]string{"resource", "type"},
	)

	// Sync metrics
	SyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_syncs_total",
			Help: "Total number of sync requests by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zerocon_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zerocon_requests_in_flight",
			Help: "Number of loader scopes currently held",
		},
	)

	// Event channel metrics
	EventFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zerocon_event_frames_total",
			Help: "Push frames by outcome (received, duplicate, delivered, invalid)",
		},
		[]string{"outcome"},
	)

	EventReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zerocon_event_reconnects_total",
			Help: "Total number of event channel reconnection attempts",
		},
	)

	NotificationsDropped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zerocon_notifications_dropped",
			Help: "Console notifications lost to full subscriber buffers",
		},
	)

	EventConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zerocon_event_connected",
			Help: "Whether the event channel is connected (1 = connected, 0 = not)",
		},
	)
)

func init() {
	prometheus.MustRegister(DispatchesTotal)
	prometheus.MustRegister(DispatchPanicsTotal)
	prometheus.MustRegister(ReentrantDispatchesTotal)
	prometheus.MustRegister(StoreItems)
	prometheus.MustRegister(StoreCount)
	prometheus.MustRegister(StorePage)
	prometheus.MustRegister(StorePages)
	prometheus.MustRegister(ActionsIgnoredTotal)
	prometheus.MustRegister(SyncsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(RequestsInFlight)
	prometheus.MustRegister(EventFramesTotal)
	prometheus.MustRegister(EventReconnectsTotal)
	prometheus.MustRegister(EventConnected)
	prometheus.MustRegister(NotificationsDropped)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Mux serves metrics and health endpoints on one handler.
func Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", HealthHandler())
	mux.HandleFunc("/ready", ReadyHandler())
	mux.HandleFunc("/live", LivenessHandler())
	return mux
}
