/*
Package monitoring provides Prometheus metrics for pipeline runs.

# Overview

Metrics implements the progress hooks of every pipeline stage (Ether,
Trunk, notification channel and queue sampling) and exposes them as
Prometheus collectors. It registers on a caller-supplied registerer so
that several instances can coexist in one process.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	p, err := pipeline.New(cfg, client, sink, pipeline.WithObserver(metrics))

	// Add middleware to a Gin router
	router.Use(monitoring.Middleware(metrics))

	// JSON counters
	snap := metrics.Snapshot()

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
