package domain

import (
	"math"
	"time"
)

// Seed values for the very first snapshot, applied field-by-field when an
// update arrives and no row exists yet.
const (
	DefaultActiveUsers       = 10247
	DefaultNotificationsSent = 156429
	DefaultAvgResponseTimeMs = 23
	DefaultErrorRate         = "0.03%"
	DefaultQueueSize         = 42
)

// SystemMetrics is the rolling health snapshot. There is exactly one logical
// current row at any time, the most recent by timestamp.
type SystemMetrics struct {
	ID                int64     `json:"id"`
	ActiveUsers       int       `json:"active_users"`
	NotificationsSent int       `json:"notifications_sent"`
	AvgResponseTimeMs int       `json:"avg_response_time_ms"`
	ErrorRate         string    `json:"error_rate"`
	QueueSize         int       `json:"queue_size"`
	Timestamp         time.Time `json:"timestamp"`
}

// MetricsUpdate is a partial update; nil fields leave the current value
// untouched.
type MetricsUpdate struct {
	ActiveUsers       *int
	NotificationsSent *int
	AvgResponseTimeMs *int
	ErrorRate         *string
	QueueSize         *int
}

// DefaultMetrics returns a snapshot seeded with the documented defaults.
func DefaultMetrics() SystemMetrics {
	return SystemMetrics{
		ActiveUsers:       DefaultActiveUsers,
		NotificationsSent: DefaultNotificationsSent,
		AvgResponseTimeMs: DefaultAvgResponseTimeMs,
		ErrorRate:         DefaultErrorRate,
		QueueSize:         DefaultQueueSize,
		Timestamp:         time.Now(),
	}
}

// Apply overlays the update onto the snapshot and clamps the queue at zero.
func (m *SystemMetrics) Apply(u MetricsUpdate) {
	if u.ActiveUsers != nil {
		m.ActiveUsers = *u.ActiveUsers
	}
	if u.NotificationsSent != nil {
		m.NotificationsSent = *u.NotificationsSent
	}
	if u.AvgResponseTimeMs != nil {
		m.AvgResponseTimeMs = *u.AvgResponseTimeMs
	}
	if u.ErrorRate != nil {
		m.ErrorRate = *u.ErrorRate
	}
	if u.QueueSize != nil {
		m.QueueSize = *u.QueueSize
	}
	if m.QueueSize < 0 {
		m.QueueSize = 0
	}
	if m.ActiveUsers < 0 {
		m.ActiveUsers = 0
	}
}

// SmoothResponseTime folds one delivery into the average. This is a weight-1/2
// exponential moving average, not a running mean: old history decays fast and
// long tails are understated. Kept deliberately.
func SmoothResponseTime(oldAvgMs, deliveryMs int) int {
	return int(math.Round(float64(oldAvgMs+deliveryMs) / 2))
}
