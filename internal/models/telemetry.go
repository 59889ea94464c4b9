package models

import "time"

// TelemetrySample is one synthesized reading for a single device.
// Samples are immutable once created.
type TelemetrySample struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Voltage     float64   `json:"voltage"`
	Current     float64   `json:"current"`
	Power       float64   `json:"power"`
}
