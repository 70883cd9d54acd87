package pgengine

import (
	"context"
	"time"
)

// HealthStatus represents the engine health status
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	PoolStats PoolStat      `json:"pool_stats"`
}

// Health performs a liveness round trip and reports pool statistics.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	_, _, err := e.ExecuteQuery(ctx, "SELECT 1")
	latency := time.Since(start)

	status := HealthStatus{
		Healthy: err == nil,
		Latency: latency,
	}
	if err != nil {
		status.Error = err.Error()
	}

	e.mu.Lock()
	if e.pool != nil {
		status.PoolStats = e.pool.Stat()
	}
	e.mu.Unlock()

	return status
}
