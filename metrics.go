package liveaudio

import "sync"

// Metrics is a point-in-time snapshot of one session's traffic counters.
type Metrics struct {
	FramesSent     int
	FramesReceived int
	DecodeFailures int
	Interrupts     int
	TurnsFlushed   int
	EntriesEmitted int
}

// MetricsCollector is goroutine-safe; the session increments it from the
// capture path and the message loop concurrently.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (m *MetricsCollector) IncFramesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.FramesSent++
}

func (m *MetricsCollector) IncFramesReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.FramesReceived++
}

func (m *MetricsCollector) IncDecodeFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.DecodeFailures++
}

func (m *MetricsCollector) IncInterrupts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Interrupts++
}

func (m *MetricsCollector) AddTurnFlushed(entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.TurnsFlushed++
	m.current.EntriesEmitted += entries
}

// Current returns a copy of the counters.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
