package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/models"
)

func TestDetectBreachAtThreshold(t *testing.T) {
	sample := models.TelemetrySample{DeviceID: "1000000001", Voltage: 240.0}
	_, hit := DetectBreach(sample, time.Now())
	assert.False(t, hit, "exactly the threshold must not breach")
}

func TestDetectBreachJustAbove(t *testing.T) {
	sample := models.TelemetrySample{DeviceID: "1000000001", Voltage: 240.01}
	alert, hit := DetectBreach(sample, time.Now())
	require.True(t, hit)
	assert.Equal(t, 240.01, alert.Value)
	assert.Equal(t, models.SeverityWarning, alert.Severity)
}

func TestDetectBreachFields(t *testing.T) {
	tick := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	sample := models.TelemetrySample{DeviceID: "1000000003", Voltage: 255.0}

	alert, hit := DetectBreach(sample, tick)
	require.True(t, hit)

	assert.Equal(t, "1000000003-"+tick.Format(time.RFC3339Nano), alert.ID)
	assert.Equal(t, "1000000003", alert.DeviceID)
	assert.Equal(t, tick, alert.Timestamp)
	assert.Equal(t, models.MetricVoltage, alert.Metric)
	assert.Equal(t, 255.0, alert.Value)
	assert.Equal(t, VoltageThreshold, alert.Threshold)
	assert.Equal(t, "High voltage detected: 255V", alert.Message)
}

func TestDetectBreachMessageKeepsDecimals(t *testing.T) {
	sample := models.TelemetrySample{DeviceID: "1000000004", Voltage: 248.37}
	alert, hit := DetectBreach(sample, time.Now())
	require.True(t, hit)
	assert.Equal(t, "High voltage detected: 248.37V", alert.Message)
}
