/*
Package metrics provides Prometheus metrics and health reporting for zerocon.

All metrics are registered on the default registry at package init and
served by Mux on /metrics, next to the /health, /ready and /live probes.
The server only runs during watch and only when metrics_addr is set.

# Metrics

	Dispatch
	  zerocon_dispatches_total{dispatcher,type}
	  zerocon_dispatch_panics_total{dispatcher}
	  zerocon_reentrant_dispatches_total{dispatcher}

	Stores
	  zerocon_store_items{resource}
	  zerocon_store_count{resource}
	  zerocon_store_page{resource}
	  zerocon_store_pages{resource}
	  zerocon_store_actions_ignored_total{resource,type}

	Requests
	  zerocon_syncs_total{resource,outcome}
	  zerocon_api_requests_total{method,status}
	  zerocon_api_request_duration_seconds{method}
	  zerocon_requests_in_flight

	Event channel
	  zerocon_event_frames_total{outcome}
	  zerocon_event_reconnects_total
	  zerocon_event_connected
	  zerocon_notifications_dropped

Counters and item gauges are updated inline by the package that owns the
event. Page gauges and the dropped notification count are sampled by a
Collector every 15 seconds, since they only matter to a scraper:

	collector := metrics.NewCollector(0)
	collector.AddStore("check", checks)
	collector.SetDropped(broker.Dropped)
	collector.Start()
	defer collector.Stop()

# Health

Components report through RegisterComponent and UpdateComponent. The api
and event components are critical: /ready answers 503 until both have
reported healthy, that is until the CSRF token loaded and the event
channel connected once.

Timer measures a request for the duration histograms:

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, req.Method)
*/
package metrics
