// Package simulator hosts the telemetry simulation and alerting engine: a
// process-wide generator that synthesizes per-device readings on a fixed
// tick, detects voltage breaches and fans device, telemetry and alert
// snapshots out to any number of observers. The recurring tick runs only
// while at least one observer is subscribed.
package simulator

import (
	"context"
	"sync"
	"time"

	"gridwatch/internal/logger"
	"gridwatch/internal/metrics"
	"gridwatch/internal/models"
)

// DefaultTickInterval matches the dashboard's 3-second publish cadence.
const DefaultTickInterval = 3 * time.Second

const externalCallTimeout = 10 * time.Second

// DeviceSource supplies the current device snapshot on demand. The engine
// only ever reads; registry mutations happen elsewhere.
type DeviceSource interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
}

// AlertStore durably mirrors the alert log. Every call the engine makes is
// best-effort: failures are logged and swallowed, never surfaced to
// subscribers. The in-memory log is the source of truth for the running
// process.
type AlertStore interface {
	RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	InsertAlert(ctx context.Context, alert models.Alert) error
	DeleteAllAlerts(ctx context.Context) error
}

// Listener callbacks run synchronously on the publishing goroutine with the
// engine lock held. They must return quickly and must not call back into
// the engine.
type (
	DeviceListener    func([]models.Device)
	TelemetryListener func(History)
	AlertListener     func([]models.Alert)
)

type deviceSub struct{ fn DeviceListener }
type telemetrySub struct{ fn TelemetryListener }
type alertSub struct{ fn AlertListener }

// Options tune a new Engine. Zero values pick the defaults.
type Options struct {
	Interval time.Duration
	Sampler  Sampler
}

// Engine is the single owner of the device snapshot, the telemetry map and
// the alert log. All mutation funnels through its mutex; the collections
// themselves are copy-on-write snapshots.
type Engine struct {
	mu sync.Mutex

	source   DeviceSource
	store    AlertStore
	sampler  Sampler
	interval time.Duration

	devices   []models.Device
	telemetry History
	alerts    []models.Alert

	deviceSubs    []*deviceSub
	telemetrySubs []*telemetrySub
	alertSubs     []*alertSub

	stopTick chan struct{}

	loadingDevices bool
	loadingAlerts  bool
}

// NewEngine wires the engine to its external collaborators. The returned
// engine is idle until the first subscriber appears.
func NewEngine(source DeviceSource, store AlertStore, opts Options) *Engine {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	sampler := opts.Sampler
	if sampler == nil {
		sampler = NewSynthesizer(time.Now().UnixNano())
	}
	return &Engine{
		source:    source,
		store:     store,
		sampler:   sampler,
		interval:  interval,
		telemetry: History{},
		alerts:    []models.Alert{},
	}
}

// SubscribeDevices registers a listener for device snapshot changes. The
// current snapshot is delivered synchronously before SubscribeDevices
// returns. The returned func unsubscribes; calling it twice is a no-op.
func (e *Engine) SubscribeDevices(fn DeviceListener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := &deviceSub{fn: fn}
	e.deviceSubs = append(e.deviceSubs, sub)
	e.ensureRunningLocked()
	fn(e.devices)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.deviceSubs {
			if s == sub {
				e.deviceSubs = append(e.deviceSubs[:i], e.deviceSubs[i+1:]...)
				break
			}
		}
		e.maybeStopLocked()
	}
}

// SubscribeTelemetry registers a listener for telemetry map changes with
// the same delivery contract as SubscribeDevices.
func (e *Engine) SubscribeTelemetry(fn TelemetryListener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := &telemetrySub{fn: fn}
	e.telemetrySubs = append(e.telemetrySubs, sub)
	e.ensureRunningLocked()
	fn(e.telemetry)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.telemetrySubs {
			if s == sub {
				e.telemetrySubs = append(e.telemetrySubs[:i], e.telemetrySubs[i+1:]...)
				break
			}
		}
		e.maybeStopLocked()
	}
}

// SubscribeAlerts registers a listener for alert log changes with the same
// delivery contract as SubscribeDevices.
func (e *Engine) SubscribeAlerts(fn AlertListener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := &alertSub{fn: fn}
	e.alertSubs = append(e.alertSubs, sub)
	e.ensureRunningLocked()
	fn(e.alerts)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.alertSubs {
			if s == sub {
				e.alertSubs = append(e.alertSubs[:i], e.alertSubs[i+1:]...)
				break
			}
		}
		e.maybeStopLocked()
	}
}

// ensureRunningLocked starts the ticker on the idle-to-running transition
// and kicks off the eager snapshot loads.
func (e *Engine) ensureRunningLocked() {
	metrics.ActiveSubscribers.Set(float64(e.subscriberCountLocked()))
	if e.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	e.stopTick = stop
	go e.run(stop)
	logger.Debug().Dur("interval", e.interval).Msg("simulation scheduler started")

	e.loadDevicesLocked()
	e.loadAlertsLocked()
}

// maybeStopLocked cancels the ticker once the last subscriber across all
// three channels is gone. In-flight persistence calls are unaffected.
func (e *Engine) maybeStopLocked() {
	metrics.ActiveSubscribers.Set(float64(e.subscriberCountLocked()))
	if e.subscriberCountLocked() > 0 || e.stopTick == nil {
		return
	}
	close(e.stopTick)
	e.stopTick = nil
	logger.Debug().Msg("simulation scheduler stopped, no subscribers")
}

func (e *Engine) subscriberCountLocked() int {
	return len(e.deviceSubs) + len(e.telemetrySubs) + len(e.alertSubs)
}

func (e *Engine) run(stop chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			e.tick(now)
		case <-stop:
			return
		}
	}
}

// tick synthesizes one sample for every device that is not explicitly
// offline, records breaches, then publishes the telemetry map once and the
// alert list once if any breach occurred. A failure for one device never
// stops the remaining devices.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.TicksTotal.Inc()

	next := e.telemetry.Clone()
	alerts := e.alerts
	breached := false

	for _, device := range e.devices {
		if device.Offline() {
			continue
		}
		sample, ok := e.sampleDevice(device, now)
		if !ok {
			continue
		}
		next[sample.DeviceID] = prependSamples(next[sample.DeviceID], sample, HistoryLimit)
		metrics.SamplesGenerated.Inc()

		if alert, hit := DetectBreach(sample, now); hit {
			alerts = prependAlerts(alerts, alert, AlertLogLimit)
			breached = true
			metrics.AlertsEmitted.Inc()
			e.persistAlert(alert)
		}
	}

	e.telemetry = next
	e.publishTelemetryLocked()
	if breached {
		e.alerts = alerts
		e.publishAlertsLocked()
	}
}

// sampleDevice isolates one device's synthesis so a panic cannot take down
// the rest of the tick.
func (e *Engine) sampleDevice(device models.Device, now time.Time) (sample models.TelemetrySample, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("device", device.SerialNumber).Interface("panic", r).Msg("sample synthesis failed")
			ok = false
		}
	}()
	return e.sampler.Sample(device, now), true
}

// persistAlert mirrors an alert to durable storage without blocking the
// tick or surfacing failures.
func (e *Engine) persistAlert(alert models.Alert) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), externalCallTimeout)
		defer cancel()
		if err := e.store.InsertAlert(ctx, alert); err != nil {
			metrics.AlertPersistFailures.Inc()
			logger.Warn().Err(err).Str("alert", alert.ID).Msg("alert persistence failed")
		}
	}()
}

// loadDevicesLocked fetches the device snapshot in the background. A load
// already in flight absorbs the request instead of issuing a duplicate.
func (e *Engine) loadDevicesLocked() {
	if e.loadingDevices {
		return
	}
	e.loadingDevices = true
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), externalCallTimeout)
		defer cancel()
		devices, err := e.source.ListDevices(ctx)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.loadingDevices = false
		if err != nil {
			metrics.SnapshotLoadFailures.Inc()
			logger.Warn().Err(err).Msg("device snapshot load failed, keeping previous snapshot")
			return
		}
		e.devices = devices
		e.publishDevicesLocked()
	}()
}

// loadAlertsLocked fetches the persisted alert log in the background, with
// the same in-flight dedup as loadDevicesLocked.
func (e *Engine) loadAlertsLocked() {
	if e.loadingAlerts {
		return
	}
	e.loadingAlerts = true
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), externalCallTimeout)
		defer cancel()
		alerts, err := e.store.RecentAlerts(ctx, AlertLogLimit)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.loadingAlerts = false
		if err != nil {
			metrics.SnapshotLoadFailures.Inc()
			logger.Warn().Err(err).Msg("alert log load failed, keeping previous log")
			return
		}
		e.alerts = alerts
		e.publishAlertsLocked()
	}()
}

// RefreshDevices requests a fresh device snapshot load; concurrent calls
// attach to any load already in flight.
func (e *Engine) RefreshDevices() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadDevicesLocked()
}

// PublishDevices replaces the device snapshot and fans it out. Registry
// handlers call this after a successful mutation.
func (e *Engine) PublishDevices(devices []models.Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.devices = devices
	e.publishDevicesLocked()
}

// ClearAlerts resets the alert log to an empty snapshot, publishes it, and
// asks the external store to drop its mirror. The external delete is
// best-effort and never blocks the reset.
func (e *Engine) ClearAlerts() {
	e.mu.Lock()
	e.alerts = []models.Alert{}
	e.publishAlertsLocked()
	e.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), externalCallTimeout)
		defer cancel()
		if err := e.store.DeleteAllAlerts(ctx); err != nil {
			logger.Warn().Err(err).Msg("alert mirror delete failed")
		}
	}()
}

func (e *Engine) publishDevicesLocked() {
	online := 0
	for _, d := range e.devices {
		if d.Online() {
			online++
		}
	}
	metrics.OnlineDevices.Set(float64(online))
	for _, sub := range e.deviceSubs {
		sub.fn(e.devices)
	}
}

func (e *Engine) publishTelemetryLocked() {
	for _, sub := range e.telemetrySubs {
		sub.fn(e.telemetry)
	}
}

func (e *Engine) publishAlertsLocked() {
	for _, sub := range e.alertSubs {
		sub.fn(e.alerts)
	}
}

// Devices returns the current device snapshot.
func (e *Engine) Devices() []models.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.devices
}

// Telemetry returns the current telemetry snapshot.
func (e *Engine) Telemetry() History {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.telemetry
}

// Alerts returns the current alert log snapshot.
func (e *Engine) Alerts() []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts
}

// OnlineCount counts devices whose status is "Online". This is the strict
// counting predicate; telemetry generation uses the broader not-offline
// test (models.Device.Offline).
func (e *Engine) OnlineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, d := range e.devices {
		if d.Online() {
			count++
		}
	}
	return count
}

// Running reports whether the recurring tick is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopTick != nil
}
