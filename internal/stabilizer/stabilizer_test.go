package stabilizer

import (
	"math"
	"testing"
	"time"

	"vibesense-service/internal/models"
	"vibesense-service/internal/zone"
)

var base = time.Unix(1700000000, 0)

func push(t *testing.T, s *Stabilizer, bpm float64, offset time.Duration) (*models.StableReading, Verdict) {
	t.Helper()
	return s.Push(models.RawSample{
		UserID:     "u1",
		BPM:        bpm,
		ObservedAt: base.Add(offset),
	})
}

func newStabilizer(t *testing.T) *Stabilizer {
	t.Helper()
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestWindow_RollingBehavior(t *testing.T) {
	w := newWindow(3)

	if w.mean() != 0 {
		t.Errorf("empty window mean = %.2f, want 0", w.mean())
	}

	w.add(base, 10)
	w.add(base, 20)
	w.add(base, 30)

	if math.Abs(w.mean()-20.0) > 0.001 {
		t.Errorf("Expected mean 20, got %.2f", w.mean())
	}

	// Adding a fourth value evicts the oldest (10).
	w.add(base, 40)

	if math.Abs(w.mean()-30.0) > 0.001 {
		t.Errorf("Expected mean 30, got %.2f", w.mean())
	}
	if w.len() != 3 {
		t.Errorf("Expected window len 3, got %d", w.len())
	}
}

func TestPush_FirstSampleAlwaysPublishes(t *testing.T) {
	s := newStabilizer(t)

	state, verdict := push(t, s, 70, 0)
	if verdict != Published || state == nil {
		t.Fatalf("first push: verdict = %s, state = %v, want publish", verdict, state)
	}
	if state.BPM != 70 {
		t.Errorf("bootstrap BPM = %.2f, want 70", state.BPM)
	}
	if state.Zone != zone.Light {
		t.Errorf("bootstrap zone = %s, want light", state.Zone)
	}
}

func TestPush_JitterSuppressed(t *testing.T) {
	s := newStabilizer(t)

	push(t, s, 70, 0)
	state, verdict := push(t, s, 72, time.Second)

	// Smoothed candidate is 71: same zone, delta 1 < MinDelta.
	if verdict != SuppressedJitter || state != nil {
		t.Fatalf("verdict = %s, state = %v, want jitter suppression", verdict, state)
	}
	if got := s.Latest().BPM; got != 70 {
		t.Errorf("Latest after suppression = %.2f, want the published 70", got)
	}
}

func TestPush_SpacingSuppressedSameZone(t *testing.T) {
	s := newStabilizer(t)

	push(t, s, 70, 0)
	// Smoothed candidate is 76: delta 6 >= MinDelta but still zone light
	// and only 1s since the last publish.
	_, verdict := push(t, s, 82, time.Second)

	if verdict != SuppressedSpacing {
		t.Fatalf("verdict = %s, want spacing suppression", verdict)
	}
}

func TestPush_FastJumpBypassesSpacing(t *testing.T) {
	s := newStabilizer(t)

	push(t, s, 70, 0)
	// Smoothed candidate is 90: zone light -> moderate, delta 20 >= FastDelta,
	// so the jump publishes despite elapsed < MinSpacing.
	state, verdict := push(t, s, 110, time.Second)

	if verdict != Published || state == nil {
		t.Fatalf("verdict = %s, want publish via fast-delta bypass", verdict)
	}
	if state.BPM != 90 {
		t.Errorf("published BPM = %.2f, want smoothed 90", state.BPM)
	}
	if state.Zone != zone.Moderate {
		t.Errorf("published zone = %s, want moderate", state.Zone)
	}
}

func TestPush_MildZoneChangeNeedsDwell(t *testing.T) {
	s := newStabilizer(t)

	push(t, s, 85, 0)

	// Smoothed candidate is 90: crosses into moderate with delta 5 < FastDelta.
	// Spacing is satisfied (10s > 8s) but dwell (20s) is not.
	_, verdict := push(t, s, 95, 10*time.Second)
	if verdict != SuppressedDwell {
		t.Fatalf("verdict at t=10s = %s, want dwell suppression", verdict)
	}
	if got := s.Latest().BPM; got != 85 {
		t.Errorf("Latest after dwell suppression = %.2f, want 85", got)
	}

	// Same value past the dwell window publishes.
	state, verdict := push(t, s, 95, 22*time.Second)
	if verdict != Published || state == nil {
		t.Fatalf("verdict at t=22s = %s, want publish", verdict)
	}
	if state.Zone != zone.Moderate {
		t.Errorf("published zone = %s, want moderate", state.Zone)
	}
}

func TestPush_WindowUpdatedOnSuppression(t *testing.T) {
	s := newStabilizer(t)

	push(t, s, 70, 0)
	push(t, s, 71, 1*time.Second)
	push(t, s, 72, 2*time.Second)

	if got := s.WindowLen(); got != 3 {
		t.Errorf("window len = %d, want 3 (suppressed samples still land in the window)", got)
	}
}

func TestPush_MoodOverrideAndMetadata(t *testing.T) {
	s := newStabilizer(t)

	hrv := 52.0
	state, _ := s.Push(models.RawSample{
		UserID:     "u1",
		BPM:        100,
		Mood:       "gritty",
		ObservedAt: base,
		Metadata:   models.Metadata{HRVMs: &hrv, WorkoutType: "running"},
	})

	if state.Mood != "gritty" {
		t.Errorf("mood = %q, want the override", state.Mood)
	}
	if state.WorkoutType != "running" {
		t.Errorf("workout metadata not passed through: %q", state.WorkoutType)
	}
	if state.HRVMs == nil || *state.HRVMs != 52.0 {
		t.Errorf("hrv metadata not passed through: %v", state.HRVMs)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 0
	if _, err := New(cfg); err == nil {
		t.Error("expected error for zero-capacity window")
	}

	cfg = DefaultConfig()
	cfg.MinSpacing = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative spacing")
	}
}

func TestVerdict_String(t *testing.T) {
	cases := map[Verdict]string{
		Published:         "published",
		SuppressedJitter:  "jitter",
		SuppressedSpacing: "spacing",
		SuppressedDwell:   "dwell",
		Verdict(42):       "unknown",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("Verdict(%d).String() = %q, want %q", v, got, want)
		}
	}
}

func BenchmarkPush(b *testing.B) {
	s, _ := New(DefaultConfig())
	in := models.RawSample{UserID: "bench", BPM: 95, ObservedAt: base}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in.ObservedAt = base.Add(time.Duration(i) * time.Millisecond)
		s.Push(in)
	}
}
