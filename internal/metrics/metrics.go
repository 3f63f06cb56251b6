// Package metrics tracks visual-session activity for run reports.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks session, check and keyword counters.
// All fields are safe for concurrent access.
type Metrics struct {
	// Session metrics
	SessionsOpened  atomic.Int64
	SessionsClosed  atomic.Int64
	SessionsAborted atomic.Int64
	NewBaselines    atomic.Int64

	// Check metrics
	ChecksSubmitted atomic.Int64
	Mismatches      atomic.Int64
	ImagesCompared  atomic.Int64

	// Keyword metrics
	KeywordsRun    atomic.Int64
	KeywordsFailed atomic.Int64

	// Timing metrics
	startTime    time.Time
	lastCheck    atomic.Value // time.Time
	avgLatencyNs atomic.Int64
	latencyCount atomic.Int64

	mu sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	Uptime          string    `json:"uptime"`
	SessionsOpened  int64     `json:"sessions_opened"`
	SessionsClosed  int64     `json:"sessions_closed"`
	SessionsAborted int64     `json:"sessions_aborted"`
	NewBaselines    int64     `json:"new_baselines"`
	ChecksSubmitted int64     `json:"checks_submitted"`
	Mismatches      int64     `json:"mismatches"`
	ImagesCompared  int64     `json:"images_compared"`
	KeywordsRun     int64     `json:"keywords_run"`
	KeywordsFailed  int64     `json:"keywords_failed"`
	AvgMatchMs      float64   `json:"avg_match_ms"`
	LastCheck       string    `json:"last_check,omitempty"`
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordMatch records one match request: its latency and whether the
// service reported the checkpoint as expected.
func (m *Metrics) RecordMatch(d time.Duration, asExpected bool) {
	if m == nil {
		return
	}
	m.ChecksSubmitted.Add(1)
	if !asExpected {
		m.Mismatches.Add(1)
	}
	m.lastCheck.Store(time.Now())
	m.RecordLatency(d)
}

// RecordLatency records a single latency measurement and updates the running average.
func (m *Metrics) RecordLatency(d time.Duration) {
	if m == nil {
		return
	}
	ns := d.Nanoseconds()
	count := m.latencyCount.Add(1)

	// Running average: newAvg = oldAvg + (newValue - oldAvg) / count
	for {
		oldAvg := m.avgLatencyNs.Load()
		newAvg := oldAvg + (ns-oldAvg)/count
		if m.avgLatencyNs.CompareAndSwap(oldAvg, newAvg) {
			break
		}
		count = m.latencyCount.Load()
		if count == 0 {
			count = 1
		}
	}
}

// RecordKeyword counts one keyword invocation.
func (m *Metrics) RecordKeyword(err error) {
	if m == nil {
		return
	}
	m.KeywordsRun.Add(1)
	if err != nil {
		m.KeywordsFailed.Add(1)
	}
}

// Uptime returns the duration since the metrics instance was created.
func (m *Metrics) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.startTime)
}

// AvgLatency returns the average match latency.
// Returns 0 if no match has been recorded.
func (m *Metrics) AvgLatency() time.Duration {
	return time.Duration(m.avgLatencyNs.Load())
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Timestamp:       time.Now(),
		Uptime:          m.Uptime().Round(time.Millisecond).String(),
		SessionsOpened:  m.SessionsOpened.Load(),
		SessionsClosed:  m.SessionsClosed.Load(),
		SessionsAborted: m.SessionsAborted.Load(),
		NewBaselines:    m.NewBaselines.Load(),
		ChecksSubmitted: m.ChecksSubmitted.Load(),
		Mismatches:      m.Mismatches.Load(),
		ImagesCompared:  m.ImagesCompared.Load(),
		KeywordsRun:     m.KeywordsRun.Load(),
		KeywordsFailed:  m.KeywordsFailed.Load(),
		AvgMatchMs:      float64(m.avgLatencyNs.Load()) / float64(time.Millisecond),
	}

	if v := m.lastCheck.Load(); v != nil {
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			snap.LastCheck = t.Format(time.RFC3339)
		}
	}

	return snap
}

// ToJSON returns a JSON-encoded representation of the current metrics snapshot.
func (m *Metrics) ToJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// Reset resets all metric counters to zero while preserving the start time.
func (m *Metrics) Reset() {
	m.SessionsOpened.Store(0)
	m.SessionsClosed.Store(0)
	m.SessionsAborted.Store(0)
	m.NewBaselines.Store(0)
	m.ChecksSubmitted.Store(0)
	m.Mismatches.Store(0)
	m.ImagesCompared.Store(0)
	m.KeywordsRun.Store(0)
	m.KeywordsFailed.Store(0)
	m.avgLatencyNs.Store(0)
	m.latencyCount.Store(0)

	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}
