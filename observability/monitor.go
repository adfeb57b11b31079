package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Monitor aggregates live-channel telemetry. Counters are atomic so the
// gateway can increment them from connection goroutines without
// coordination; Snapshot is the only reader.
type Monitor struct {
	startedAt time.Time

	totalConnections  atomic.Uint64
	activeConnections atomic.Int64
	eventsDelivered   atomic.Uint64
	handlerErrors     atomic.Uint64
}

// MonitorStats is the snapshot served by the health endpoint.
type MonitorStats struct {
	UptimeSeconds     float64 `json:"uptime_seconds"`
	ActiveConnections int64   `json:"active_connections"`
	TotalConnections  uint64  `json:"total_connections"`
	EventsDelivered   uint64  `json:"events_delivered"`
	HandlerErrors     uint64  `json:"handler_errors"`
	AllocMemMB        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
}

func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

func (m *Monitor) ConnOpened() {
	m.totalConnections.Add(1)
	m.activeConnections.Add(1)
}

func (m *Monitor) ConnClosed() {
	m.activeConnections.Add(-1)
}

// EventDelivered counts one event written to a live channel.
func (m *Monitor) EventDelivered() {
	m.eventsDelivered.Add(1)
}

// HandlerError counts one inbound event whose handler failed.
func (m *Monitor) HandlerError() {
	m.handlerErrors.Add(1)
}

func (m *Monitor) Snapshot() MonitorStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return MonitorStats{
		UptimeSeconds:     time.Since(m.startedAt).Seconds(),
		ActiveConnections: m.activeConnections.Load(),
		TotalConnections:  m.totalConnections.Load(),
		EventsDelivered:   m.eventsDelivered.Load(),
		HandlerErrors:     m.handlerErrors.Load(),
		AllocMemMB:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
	}
}
