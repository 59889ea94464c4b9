package models

import "time"

// Alert severities. Alerts are stored as "warning"; "critical" only exists
// as a read-time projection, never written back.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// MetricVoltage is the only metric alerts are raised for.
const MetricVoltage = "voltage"

// CriticalMargin is how far past the threshold a value must be before a
// stored warning reads back as critical.
const CriticalMargin = 10.0

// Alert records a threshold breach. Immutable once created; the id is the
// device serial joined with the tick timestamp, unique per device per tick.
type Alert struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
}

// EffectiveSeverity is the display-time severity: critical when the value
// exceeds the threshold by more than CriticalMargin, otherwise the stored
// severity. Idempotent projection over persisted alerts.
func (a Alert) EffectiveSeverity() string {
	if a.Value > a.Threshold+CriticalMargin {
		return SeverityCritical
	}
	return a.Severity
}
