// Package stabilizer turns noisy heart-rate samples into a stable signal.
// It smooths samples over a rolling window and applies layered hysteresis so
// that downstream consumers only see genuine state changes:
//   - small same-zone jitter is rejected outright
//   - publish frequency is capped, except for large obvious jumps
//   - mild zone transitions must persist past a dwell window
package stabilizer

import (
	"fmt"
	"math"
	"time"

	"vibesense-service/internal/models"
	"vibesense-service/internal/zone"
)

// Default tunables, shared by every per-user stabilizer unless overridden.
const (
	DefaultWindowSize   = 5
	DefaultMinDelta     = 5.0
	DefaultMinSpacing   = 8 * time.Second
	DefaultMinZoneDwell = 20 * time.Second
	DefaultFastDelta    = 12.0
)

// Config holds the stabilizer tunables. Shared by value across users.
type Config struct {
	// WindowSize is the rolling-window capacity used for smoothing.
	WindowSize int
	// MinDelta is the smallest same-zone BPM change treated as signal.
	MinDelta float64
	// MinSpacing is the minimum wall-clock gap between publishes.
	MinSpacing time.Duration
	// MinZoneDwell is how long a mild zone change must persist.
	MinZoneDwell time.Duration
	// FastDelta is a jump large enough to bypass spacing and dwell gates.
	FastDelta float64
}

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{
		WindowSize:   DefaultWindowSize,
		MinDelta:     DefaultMinDelta,
		MinSpacing:   DefaultMinSpacing,
		MinZoneDwell: DefaultMinZoneDwell,
		FastDelta:    DefaultFastDelta,
	}
}

// Validate reports construction-time contract violations. These are fatal
// at startup, not runtime error paths.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("stabilizer: window size must be positive, got %d", c.WindowSize)
	}
	if c.MinDelta < 0 || c.FastDelta < 0 {
		return fmt.Errorf("stabilizer: delta thresholds must be non-negative")
	}
	if c.MinSpacing < 0 || c.MinZoneDwell < 0 {
		return fmt.Errorf("stabilizer: spacing and dwell must be non-negative")
	}
	return nil
}

// Verdict describes the outcome of a single push.
type Verdict int

const (
	Published Verdict = iota
	SuppressedJitter
	SuppressedSpacing
	SuppressedDwell
)

// String returns the metric/log label for the verdict.
func (v Verdict) String() string {
	switch v {
	case Published:
		return "published"
	case SuppressedJitter:
		return "jitter"
	case SuppressedSpacing:
		return "spacing"
	case SuppressedDwell:
		return "dwell"
	default:
		return "unknown"
	}
}

// sample is one timestamped rate inside the rolling window.
type sample struct {
	ts  time.Time
	bpm float64
}

// window is a fixed-capacity ring with a running sum, so the mean is O(1).
type window struct {
	samples []sample
	size    int
	index   int
	count   int
	sum     float64
}

func newWindow(size int) *window {
	return &window{
		samples: make([]sample, size),
		size:    size,
	}
}

// add appends a sample, evicting the oldest once the ring is full.
func (w *window) add(ts time.Time, bpm float64) {
	if w.count >= w.size {
		w.sum -= w.samples[w.index].bpm
	} else {
		w.count++
	}
	w.samples[w.index] = sample{ts: ts, bpm: bpm}
	w.sum += bpm
	w.index = (w.index + 1) % w.size
}

// mean returns the smoothed rate, or 0 for an empty window.
func (w *window) mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

func (w *window) len() int {
	return w.count
}

// Stabilizer is the per-user stateful filter. Not safe for concurrent use;
// callers serialize access per user key.
type Stabilizer struct {
	cfg         Config
	win         *window
	latest      *models.StableReading
	lastPublish time.Time
}

// New constructs a stabilizer, rejecting invalid configs.
func New(cfg Config) (*Stabilizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Stabilizer{
		cfg: cfg,
		win: newWindow(cfg.WindowSize),
	}, nil
}

// Push absorbs one raw sample and decides whether a new stable reading
// should be published. The window is updated regardless of the outcome.
// A nil reading means the sample was suppressed; the verdict says why.
//
// The gates run in a fixed order (jitter, spacing, dwell). Swapping the
// spacing and dwell checks would change which samples get through during
// fast zone changes near the spacing boundary, so the order is load-bearing.
func (s *Stabilizer) Push(in models.RawSample) (*models.StableReading, Verdict) {
	s.win.add(in.ObservedAt, in.BPM)

	smoothed := s.win.mean()
	candidate := models.NewStableReading(in.UserID, smoothed, in.Mood, in.ObservedAt, in.Metadata)

	// First sample for this user always publishes.
	if s.latest == nil {
		return s.record(candidate), Published
	}

	prev := s.latest
	delta := math.Abs(candidate.BPM - prev.BPM)
	sameZone := zone.Classify(candidate.BPM) == zone.Classify(prev.BPM)
	elapsed := in.ObservedAt.Sub(s.lastPublish)
	zoneChanged := !sameZone

	// Ignore small jitter inside the same zone.
	if sameZone && delta < s.cfg.MinDelta {
		return nil, SuppressedJitter
	}

	// Cap publish frequency, letting large obvious jumps through.
	if elapsed < s.cfg.MinSpacing {
		if !(zoneChanged && delta >= s.cfg.FastDelta) {
			return nil, SuppressedSpacing
		}
	}

	// Mild zone changes must persist past the dwell window.
	if zoneChanged && delta < s.cfg.FastDelta && elapsed < s.cfg.MinZoneDwell {
		return nil, SuppressedDwell
	}

	return s.record(candidate), Published
}

func (s *Stabilizer) record(state models.StableReading) *models.StableReading {
	s.latest = &state
	s.lastPublish = state.Timestamp
	return s.latest
}

// Latest returns the last published reading without side effects, or nil
// if nothing has been published yet.
func (s *Stabilizer) Latest() *models.StableReading {
	return s.latest
}

// WindowLen reports how many samples the rolling window currently holds.
func (s *Stabilizer) WindowLen() int {
	return s.win.len()
}
