package models

import (
	"regexp"
	"strings"
)

// Device types in the fleet
const (
	TypeSmartMeter = "Smart Meter"
	TypeGateway    = "Gateway"
	TypeHVAC       = "HVAC"
)

// Canonical connectivity statuses
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
	StatusWarning = "Warning"
)

var serialPattern = regexp.MustCompile(`^\d{10}$`)

// Device represents a registered fleet device
type Device struct {
	ID              int64  `json:"id"`
	SerialNumber    string `json:"serialNumber"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Location        string `json:"location"`
	MACAddress      string `json:"macAddress"`
	FirmwareVersion string `json:"firmwareVersion"`
	Protocol        string `json:"protocol"`
	Status          string `json:"status"`
}

// ValidSerial reports whether s is a 10-digit serial number
func ValidSerial(s string) bool {
	return serialPattern.MatchString(s)
}

// NormalizeStatus maps any casing of the known statuses to their canonical
// form; unknown values pass through trimmed but otherwise unchanged.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online":
		return StatusOnline
	case "offline":
		return StatusOffline
	case "warning":
		return StatusWarning
	}
	return strings.TrimSpace(s)
}

// Offline gates telemetry generation: only an explicit "Offline" status
// (any casing) excludes a device from the simulation tick. Unknown statuses
// are treated as generating.
func (d Device) Offline() bool {
	return strings.EqualFold(strings.TrimSpace(d.Status), "offline")
}

// Online backs the dashboard online counter, which counts strictly "Online"
// devices. A "Warning" device still generates telemetry but is not counted
// online; the two predicates are intentionally distinct.
func (d Device) Online() bool {
	return strings.EqualFold(strings.TrimSpace(d.Status), "online")
}
