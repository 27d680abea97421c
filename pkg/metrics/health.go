package metrics

import (
	"sync"
	"time"
)

// HealthStatus is the payload served by the health endpoint
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

var health = struct {
	mu        sync.RWMutex
	version   string
	startTime time.Time
}{
	startTime: time.Now(),
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.version = version
}

// GetHealth returns the current health status
func GetHealth() HealthStatus {
	health.mu.RLock()
	defer health.mu.RUnlock()

	return HealthStatus{
		Status:  "ok",
		Service: "murmur",
		Version: health.version,
		Uptime:  time.Since(health.startTime).Round(time.Second).String(),
	}
}
