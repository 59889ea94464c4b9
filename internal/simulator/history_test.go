package simulator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/models"
)

func sampleAt(deviceID string, voltage float64, at time.Time) models.TelemetrySample {
	return models.TelemetrySample{DeviceID: deviceID, Timestamp: at, Voltage: voltage}
}

func TestHistoryAppendNewestFirst(t *testing.T) {
	h := History{}
	base := time.Now()

	h = h.Append(sampleAt("1000000001", 230, base))
	h = h.Append(sampleAt("1000000001", 231, base.Add(time.Second)))
	h = h.Append(sampleAt("1000000001", 232, base.Add(2*time.Second)))

	samples := h["1000000001"]
	require.Len(t, samples, 3)
	assert.Equal(t, 232.0, samples[0].Voltage)
	assert.Equal(t, 231.0, samples[1].Voltage)
	assert.Equal(t, 230.0, samples[2].Voltage)
}

func TestHistoryAppendBounded(t *testing.T) {
	h := History{}
	for i := 0; i < HistoryLimit+20; i++ {
		h = h.Append(sampleAt("1000000001", float64(i), time.Now()))
	}

	samples := h["1000000001"]
	require.Len(t, samples, HistoryLimit)
	// Newest survives, oldest twenty were dropped.
	assert.Equal(t, float64(HistoryLimit+19), samples[0].Voltage)
	assert.Equal(t, 20.0, samples[HistoryLimit-1].Voltage)
}

func TestHistoryAppendCopyOnWrite(t *testing.T) {
	h := History{}
	h = h.Append(sampleAt("1000000001", 230, time.Now()))

	before := h
	after := h.Append(sampleAt("1000000001", 250, time.Now()))

	require.Len(t, before["1000000001"], 1)
	require.Len(t, after["1000000001"], 2)
	assert.Equal(t, 230.0, before["1000000001"][0].Voltage)
}

func TestHistoryLatest(t *testing.T) {
	h := History{}
	_, ok := h.Latest("1000000001")
	assert.False(t, ok)

	h = h.Append(sampleAt("1000000001", 230, time.Now()))
	h = h.Append(sampleAt("1000000001", 245, time.Now()))

	latest, ok := h.Latest("1000000001")
	require.True(t, ok)
	assert.Equal(t, 245.0, latest.Voltage)
}

func TestHistoryTracksDevicesIndependently(t *testing.T) {
	h := History{}
	for i := 0; i < 5; i++ {
		h = h.Append(sampleAt("1000000001", float64(i), time.Now()))
	}
	h = h.Append(sampleAt("2000000002", 99, time.Now()))

	assert.Len(t, h["1000000001"], 5)
	assert.Len(t, h["2000000002"], 1)
}

func TestPrependAlertsBounded(t *testing.T) {
	alerts := []models.Alert{}
	for i := 0; i < AlertLogLimit+5; i++ {
		alerts = prependAlerts(alerts, models.Alert{ID: fmt.Sprintf("a-%d", i)}, AlertLogLimit)
	}

	require.Len(t, alerts, AlertLogLimit)
	assert.Equal(t, fmt.Sprintf("a-%d", AlertLogLimit+4), alerts[0].ID)
}
