/*
Package monitoring provides metrics collection for the multiplexer.

# Overview

Prometheus metrics for the session engine and its hosting server: process
lifecycle, routed bytes, stale events dropped by the router, layout counts,
WebSocket connections and HTTP requests.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	metrics.SessionSpawned()
	metrics.RecordBytes(monitoring.DirectionOut, n)

All recording methods are safe on a nil *Metrics, so components can run
without a collector in tests.
*/
package monitoring
