package sessionstore

import "github.com/przemekbroda/sessionstore/internal/metrics"

// MetricID identifies one of the manager's in-process counters.
type MetricID = metrics.MetricID

const (
	MetricTicketStored    = metrics.MetricTicketStored
	MetricTicketRetrieved = metrics.MetricTicketRetrieved
	MetricCacheMiss       = metrics.MetricCacheMiss
	MetricDecodeFailure   = metrics.MetricDecodeFailure
	MetricTicketRenewed   = metrics.MetricTicketRenewed
	MetricTicketRemoved   = metrics.MetricTicketRemoved
	MetricSessionRevoked  = metrics.MetricSessionRevoked
	MetricRowsSwept       = metrics.MetricRowsSwept
	MetricSweepFailure    = metrics.MetricSweepFailure
	MetricRefreshRenewed  = metrics.MetricRefreshRenewed
	MetricRefreshSkipped  = metrics.MetricRefreshSkipped
	MetricRefreshFailure  = metrics.MetricRefreshFailure
)

// MetricName returns the stable string name of a metric id.
func MetricName(id MetricID) string {
	return metrics.Name(id)
}
