package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"gridwatch/internal/models"
)

// Baselines and bounds for the synthesized electrical model.
const (
	tempBaseHVAC    = 20.5
	tempBaseDefault = 28.0
	tempJitter      = 0.6

	voltageBase        = 230.0
	voltageJitter      = 4.0
	voltageSpikeProb   = 0.08
	voltageSpikeBase   = 248.0
	voltageSpikeJitter = 8.0
	voltageMin         = 200.0
	voltageMax         = 270.0

	currentBaseGateway = 0.6
	currentBaseHVAC    = 8.0
	currentBaseDefault = 4.0
	currentJitterRatio = 0.15
	currentMin         = 0.1
	currentMax         = 40.0
)

// Sampler produces one telemetry sample for a device at an instant.
// Implementations must be safe for concurrent use.
type Sampler interface {
	Sample(device models.Device, now time.Time) models.TelemetrySample
}

// Synthesizer is the default Sampler: type-dependent baselines with
// symmetric random jitter. Pure apart from its randomness source.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthesizer returns a Synthesizer seeded for reproducible runs.
func NewSynthesizer(seed int64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

// Sample synthesizes one reading. Callers skip offline devices; Sample
// itself does not check connectivity status.
func (s *Synthesizer) Sample(device models.Device, now time.Time) models.TelemetrySample {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempBase := tempBaseDefault
	if device.Type == models.TypeHVAC {
		tempBase = tempBaseHVAC
	}
	temperature := round2(s.jitter(tempBase, tempJitter))

	// Voltage hovers around 230V with slight fluctuation and occasionally
	// spikes to simulate an unstable supply.
	voltage := s.jitter(voltageBase, voltageJitter)
	if s.rng.Float64() < voltageSpikeProb {
		voltage += s.jitter(voltageSpikeBase, voltageSpikeJitter)
	}
	voltage = round2(clamp(voltage, voltageMin, voltageMax))

	currentBase := currentBaseDefault
	switch device.Type {
	case models.TypeGateway:
		currentBase = currentBaseGateway
	case models.TypeHVAC:
		currentBase = currentBaseHVAC
	}
	current := round2(clamp(s.jitter(currentBase, currentBase*currentJitterRatio), currentMin, currentMax))

	return models.TelemetrySample{
		DeviceID:    device.SerialNumber,
		Timestamp:   now,
		Temperature: temperature,
		Voltage:     voltage,
		Current:     current,
		Power:       round2(voltage * current),
	}
}

// jitter returns base offset by a uniform value in [-magnitude, magnitude].
func (s *Synthesizer) jitter(base, magnitude float64) float64 {
	return base + (s.rng.Float64()-0.5)*2*magnitude
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
