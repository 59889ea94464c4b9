package simulator

import (
	"strconv"
	"time"

	"gridwatch/internal/models"
)

// VoltageThreshold is the breach threshold in volts.
const VoltageThreshold = 240.0

// DetectBreach inspects a sample and, when its voltage strictly exceeds
// the threshold, returns the alert to record. tick is the scheduler's
// timestamp for the current pass; together with the device serial it keys
// the alert id. Stateless and pure.
func DetectBreach(sample models.TelemetrySample, tick time.Time) (models.Alert, bool) {
	if sample.Voltage <= VoltageThreshold {
		return models.Alert{}, false
	}
	voltage := strconv.FormatFloat(sample.Voltage, 'f', -1, 64)
	return models.Alert{
		ID:        sample.DeviceID + "-" + tick.UTC().Format(time.RFC3339Nano),
		DeviceID:  sample.DeviceID,
		Timestamp: tick,
		Metric:    models.MetricVoltage,
		Value:     sample.Voltage,
		Threshold: VoltageThreshold,
		Severity:  models.SeverityWarning,
		Message:   "High voltage detected: " + voltage + "V",
	}, true
}
