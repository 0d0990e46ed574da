// Package selection holds the gateway every process should currently send
// payments to. There is one logical writer (the health monitor, plus
// emergency overrides from workers) and any number of readers; the last
// write wins and stale values are corrected on the next poll.
package selection

import "payment-router/internal/entities"

type Selection interface {
	// Get never blocks and returns the last value written by any process.
	Get() entities.Gateway
	// Set stores g without waiting for other processes to observe it.
	Set(g entities.Gateway)
	Close() error
}
