/*
Package monitoring provides Prometheus metrics for the agent control plane.

# Overview

Tracks inbound control requests, supervisor lifecycle transitions, health
check outcomes, and outbound helper calls. Each Metrics instance owns a
private registry so hosts embedding several control planes (or tests) never
collide on metric names.

# Usage

	metrics := monitoring.NewMetrics()
	metrics.RecordStateTransition("ready", "crashed")
	metrics.RecordControlRequest("POST", "/internal/navigate", "200", elapsed)

The registry is exposed via Registry() for hosts that already serve a
Prometheus exposition endpoint; this package deliberately opens no listener
of its own.
*/
package monitoring
