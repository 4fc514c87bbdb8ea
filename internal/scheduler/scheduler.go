package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/calibration"
	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/solar"
)

// ErrInvalidSettings is returned by Configure for out-of-range settings.
var ErrInvalidSettings = errors.New("scheduler: invalid settings")

const defaultInterval = 5 * time.Minute

// Config holds the fixed scheduler parameters.
type Config struct {
	Latitude  float64
	Longitude float64
	Settings  Settings

	// Interval between ticks (default 5m).
	Interval time.Duration

	// RedetectEvery re-runs detection every N ticks; 0 never re-detects
	// on its own.
	RedetectEvery int
}

// Scheduler is the auto-brightness loop.
//
// Thread Safety: all methods are safe for concurrent use. Ticks never
// overlap.
type Scheduler struct {
	cfg      Config
	monitors Monitors
	cals     Calibrations
	sinks    Sinks
	logger   Logger
	now      func() time.Time

	tickMu sync.Mutex // serialises Tick

	mu       sync.RWMutex
	settings Settings
	applied  map[string]int
	last     *Result
	nextRun  time.Time

	redetect chan struct{}
}

// New creates a scheduler. cals may be nil.
func New(cfg Config, monitors Monitors, cals Calibrations, sinks Sinks) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Settings.Mode == "" {
		cfg.Settings.Mode = solar.ModeCurve
	}
	return &Scheduler{
		cfg:      cfg,
		monitors: monitors,
		cals:     cals,
		sinks:    sinks,
		logger:   noopLogger{},
		now:      time.Now,
		settings: cfg.Settings,
		applied:  make(map[string]int),
		redetect: make(chan struct{}, 1),
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// SetStatePublisher replaces the state sink. Ticks in progress finish with
// the previous one.
func (s *Scheduler) SetStatePublisher(p StatePublisher) {
	s.tickMu.Lock()
	s.sinks.State = p
	s.tickMu.Unlock()
}

// SetEnabled turns automatic brightness on or off. Disabled ticks still
// compute and publish the target but write nothing.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.settings.Enabled != enabled
	s.settings.Enabled = enabled
	if enabled {
		// Re-apply everything on the next tick.
		s.applied = make(map[string]int)
	}
	s.mu.Unlock()

	if changed {
		s.logger.Info("auto brightness toggled", "enabled", enabled)
	}
}

// Enabled reports whether automatic brightness is on.
func (s *Scheduler) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Enabled
}

// Settings returns the current settings.
func (s *Scheduler) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Configure replaces the settings after validating them.
func (s *Scheduler) Configure(settings Settings) error {
	if settings.Mode == "" {
		settings.Mode = solar.ModeCurve
	}
	if _, err := solar.ParseMode(string(settings.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if settings.Min < 0 || settings.Max > 1 || settings.Min > settings.Max {
		return fmt.Errorf("%w: min %.2f max %.2f must satisfy 0 <= min <= max <= 1",
			ErrInvalidSettings, settings.Min, settings.Max)
	}

	s.mu.Lock()
	s.settings = settings
	s.applied = make(map[string]int)
	s.mu.Unlock()

	s.logger.Info("schedule updated", "enabled", settings.Enabled, "min", settings.Min,
		"max", settings.Max, "mode", settings.Mode)
	return nil
}

// Redetect asks the running loop to re-detect monitors before its next
// tick and to tick immediately.
func (s *Scheduler) Redetect() {
	select {
	case s.redetect <- struct{}{}:
	default:
	}
}

// Status returns the scheduler's current state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	applied := make(map[string]int, len(s.applied))
	for k, v := range s.applied {
		applied[k] = v
	}
	st := Status{
		Settings:        s.settings,
		IntervalSeconds: int(s.cfg.Interval / time.Second),
		Latitude:        s.cfg.Latitude,
		Longitude:       s.cfg.Longitude,
		NextRun:         s.nextRun,
		Applied:         applied,
	}
	if snap := s.monitors.Snapshot(); snap != nil {
		st.DetectedAt = snap.DetectedAt
	}
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	return st
}

// Run ticks once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Detect(ctx)
	s.Tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.setNextRun(s.now().Add(s.cfg.Interval))

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.redetect:
			s.Detect(ctx)
			s.Tick(ctx)
			ticks = 0
		case <-ticker.C:
			ticks++
			if s.cfg.RedetectEvery > 0 && ticks%s.cfg.RedetectEvery == 0 {
				s.Detect(ctx)
			}
			s.Tick(ctx)
			s.setNextRun(s.now().Add(s.cfg.Interval))
		}
	}
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}

// Detect runs a detection pass now. It waits for a running tick to finish.
func (s *Scheduler) Detect(ctx context.Context) *monitor.Snapshot {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.detect(ctx)
}

// detect re-runs monitor detection and forgets what was written, since ids
// may now name different displays.
func (s *Scheduler) detect(ctx context.Context) *monitor.Snapshot {
	snap := s.monitors.Detect(ctx)
	if snap == nil {
		snap = monitor.NewSnapshot("", s.now(), nil)
	}

	s.mu.Lock()
	s.applied = make(map[string]int)
	s.mu.Unlock()

	if s.sinks.Hub != nil {
		s.sinks.Hub.Broadcast(ChannelMonitorDetected, map[string]any{
			"pass_id":     snap.PassID,
			"detected_at": snap.DetectedAt,
			"monitors":    snap.List(),
		})
	}
	return snap
}

// Tick computes the current target and applies it to every monitor.
func (s *Scheduler) Tick(ctx context.Context) Result {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	settings := s.Settings()
	now := s.now()

	curve := solar.Curve{Min: settings.Min, Max: settings.Max, Mode: settings.Mode}
	elevation := solar.Elevation(s.cfg.Latitude, s.cfg.Longitude, now)
	result := Result{
		At:        now.UTC(),
		Elevation: elevation,
		Target:    curve.Percent(elevation),
		Enabled:   settings.Enabled,
	}

	snap := s.monitors.Snapshot()
	if snap.Len() == 0 {
		snap = s.detect(ctx)
	}
	cals := s.calibrations(ctx)

	for _, rec := range snap.List() {
		if ctx.Err() != nil {
			break
		}
		result.Monitors = append(result.Monitors, s.apply(ctx, rec, cals, result.Target, settings.Enabled))
	}

	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()

	s.logger.Info("brightness tick",
		"elevation", fmt.Sprintf("%.2f", elevation),
		"target", result.Target,
		"enabled", settings.Enabled,
		"monitors", len(result.Monitors),
	)
	s.fanOut(result)
	return result
}

func (s *Scheduler) apply(ctx context.Context, rec monitor.Record, cals map[string]calibration.Calibration, target int, enabled bool) MonitorResult {
	cal, ok := cals[rec.Label]
	if !ok {
		cal = calibration.Default(rec.Label)
	}
	mr := MonitorResult{
		ID:      rec.ID,
		Label:   rec.Label,
		Backend: rec.Backend.String(),
		Target:  cal.Apply(target),
	}

	s.mu.RLock()
	prev, written := s.applied[rec.ID]
	s.mu.RUnlock()

	switch {
	case cal.Excluded:
		mr.Skipped = SkipExcluded
	case !enabled:
		mr.Skipped = SkipDisabled
	case written && prev == mr.Target:
		mr.Skipped = SkipUnchanged
	default:
		if err := s.monitors.SetBrightness(ctx, rec.ID, mr.Target); err != nil {
			s.logger.Warn("failed to set brightness", "monitor", rec.ID, "label", rec.Label, "error", err)
			mr.Error = err.Error()
			break
		}
		mr.Applied = true
		s.mu.Lock()
		s.applied[rec.ID] = mr.Target
		s.mu.Unlock()
	}
	return mr
}

func (s *Scheduler) calibrations(ctx context.Context) map[string]calibration.Calibration {
	out := make(map[string]calibration.Calibration)
	if s.cals == nil {
		return out
	}
	list, err := s.cals.List(ctx)
	if err != nil {
		s.logger.Warn("loading calibrations failed, using neutral values", "error", err)
		return out
	}
	for _, c := range list {
		out[c.Label] = c
	}
	return out
}

func (s *Scheduler) fanOut(r Result) {
	if s.sinks.State != nil {
		if err := s.sinks.State.PublishTick(r); err != nil {
			s.logger.Warn("publishing state failed", "error", err)
		}
	}
	if s.sinks.Telemetry != nil {
		s.sinks.Telemetry.WriteCurve(r.Elevation, r.Target, r.At)
		for _, m := range r.Monitors {
			if m.Applied {
				s.sinks.Telemetry.WriteMonitorBrightness(m.ID, m.Label, m.Backend, m.Target, r.At)
			}
		}
	}
	if s.sinks.Hub != nil {
		s.sinks.Hub.Broadcast(ChannelTick, r)
		for _, m := range r.Monitors {
			if m.Applied {
				s.sinks.Hub.Broadcast(ChannelMonitorBrightness, map[string]any{
					"id":         m.ID,
					"label":      m.Label,
					"brightness": m.Target,
					"source":     "schedule",
				})
			}
		}
	}
}
