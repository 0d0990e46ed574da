package config

import "time"

const (
	// How often the HealthMonitor probes both payment processors
	HealthCheckInterval = 5010 * time.Millisecond

	// Upper bound for a single health probe
	HealthCheckTimeout = 2 * time.Second

	// Latency threshold in milliseconds - use fallback if default is slower than this and at least twice as slow
	LatencyThresholdMs = 100

	// Bounded wait of a consumer blocked on an empty queue, so shutdown is noticed
	QueueWaitTime = 2 * time.Second

	// How long non-initializer processes wait for the initializer to set up shared state
	SettleDelay = 2 * time.Second

	// Upper bound for publishing a gateway switch to other processes
	SelectionPublishTimeout = 500 * time.Millisecond

	ShutdownTimeout = 5 * time.Second

	// Standardized date format for consistency across all components
	DateTimeFormat = "2006-01-02T15:04:05.000Z"
)
