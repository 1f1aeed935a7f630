package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncSearch increments the search counter.
	IncSearch(cacheHit, success bool)

	// ObserveSearchDuration records search duration.
	ObserveSearchDuration(duration time.Duration)

	// IncTileRender increments the tile render counter.
	IncTileRender(cacheHit, success bool)

	// ObserveTileDuration records tile render duration.
	ObserveTileDuration(duration time.Duration)

	// IncJob increments the job counter for a lifecycle state.
	IncJob(status string)

	// SetQueueDepth sets the current export queue depth.
	SetQueueDepth(depth int)

	// IncStorageOperations increments the file storage operation counter.
	IncStorageOperations(operation string, success bool)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncSearch implements MetricsCollector.
func (n *NoOpMetrics) IncSearch(_, _ bool) {}

// ObserveSearchDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveSearchDuration(_ time.Duration) {}

// IncTileRender implements MetricsCollector.
func (n *NoOpMetrics) IncTileRender(_, _ bool) {}

// ObserveTileDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveTileDuration(_ time.Duration) {}

// IncJob implements MetricsCollector.
func (n *NoOpMetrics) IncJob(_ string) {}

// SetQueueDepth implements MetricsCollector.
func (n *NoOpMetrics) SetQueueDepth(_ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}
