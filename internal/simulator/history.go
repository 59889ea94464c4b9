package simulator

import "gridwatch/internal/models"

// HistoryLimit caps the per-device sample history.
const HistoryLimit = 50

// AlertLogLimit caps the in-memory alert log.
const AlertLogLimit = 100

// History maps a device serial to its samples, newest first. Snapshots are
// immutable: Append copies rather than mutating, so a reader holding an
// older snapshot never observes a partial update.
type History map[string][]models.TelemetrySample

// Append returns a new History with sample at the front of its device's
// sequence, truncated to HistoryLimit. The receiver is left untouched.
func (h History) Append(sample models.TelemetrySample) History {
	next := h.Clone()
	next[sample.DeviceID] = prependSamples(next[sample.DeviceID], sample, HistoryLimit)
	return next
}

// Latest returns the most recent sample for the device, if any.
func (h History) Latest(deviceID string) (models.TelemetrySample, bool) {
	samples := h[deviceID]
	if len(samples) == 0 {
		return models.TelemetrySample{}, false
	}
	return samples[0], true
}

// Clone copies the outer map. Per-device slices are shared; they are never
// mutated in place.
func (h History) Clone() History {
	next := make(History, len(h)+1)
	for id, samples := range h {
		next[id] = samples
	}
	return next
}

func prependSamples(old []models.TelemetrySample, sample models.TelemetrySample, limit int) []models.TelemetrySample {
	n := len(old) + 1
	if n > limit {
		n = limit
	}
	next := make([]models.TelemetrySample, 0, n)
	next = append(next, sample)
	next = append(next, old[:n-1]...)
	return next
}

func prependAlerts(old []models.Alert, alert models.Alert, limit int) []models.Alert {
	n := len(old) + 1
	if n > limit {
		n = limit
	}
	next := make([]models.Alert, 0, n)
	next = append(next, alert)
	next = append(next, old[:n-1]...)
	return next
}
