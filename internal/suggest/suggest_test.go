package suggest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibesense-service/internal/models"
)

var base = time.Unix(1700000000, 0)

func reading(bpm float64, mood string, meta models.Metadata) models.StableReading {
	return models.NewStableReading("alice", bpm, mood, base, meta)
}

func TestSuggest_ZoneDefaults(t *testing.T) {
	svc := NewService(nil)

	sg := svc.Suggest(reading(100, "", models.Metadata{}))

	assert.Equal(t, "upbeat", sg.Mood)
	assert.Equal(t, 0.55, sg.Intensity)
	assert.Equal(t, "play_playlist", sg.SuggestedAction)
	assert.Contains(t, sg.SearchQuery, "upbeat pop indie groove")
	assert.Contains(t, sg.SearchQuery, "upbeat pop/indie", "playlist hint should be folded into the query")
	assert.Contains(t, sg.Reason, "moderate zone")
	assert.NotEmpty(t, sg.ID)
	assert.Equal(t, "alice", sg.UserID)
}

func TestSuggest_StressedSteersCalm(t *testing.T) {
	svc := NewService(nil)

	hrv := 30.0
	sg := svc.Suggest(reading(100, "", models.Metadata{HRVMs: &hrv}))

	assert.Equal(t, "calm", sg.Mood)
	assert.Equal(t, 0.2, sg.Intensity)
	assert.Equal(t, "calming ambient instrumental", sg.SearchQuery)
	assert.Contains(t, sg.Reason, "low HRV")
}

func TestSuggest_RecoveredSteersFocus(t *testing.T) {
	svc := NewService(nil)

	hrv := 70.0
	sg := svc.Suggest(reading(65, "", models.Metadata{HRVMs: &hrv}))

	assert.Equal(t, "focus", sg.Mood)
	assert.Equal(t, 0.35, sg.Intensity)
	assert.Equal(t, "deep focus beats", sg.SearchQuery)
}

func TestSuggest_WorkoutKeepsEnergy(t *testing.T) {
	svc := NewService(nil)

	hrv := 50.0
	sg := svc.Suggest(reading(130, "", models.Metadata{HRVMs: &hrv, WorkoutType: "running"}))

	assert.Equal(t, "hype", sg.Mood)
	assert.Equal(t, "play_track", sg.SuggestedAction)
	assert.Contains(t, sg.SearchQuery, "running")
	assert.Contains(t, sg.Reason, "Workout: running")
}

func TestSuggest_HighBPMAtRestIsStressed(t *testing.T) {
	svc := NewService(nil)

	// No workout label, 110 bpm against a 60 resting baseline.
	resting := 60.0
	sg := svc.Suggest(reading(110, "", models.Metadata{RestingHR: &resting}))

	assert.Equal(t, "calm", sg.Mood)
}

func TestSuggest_TimeOfDayInReason(t *testing.T) {
	svc := NewService(nil)

	sg := svc.Suggest(reading(100, "", models.Metadata{TimeOfDay: "evening"}))
	assert.Contains(t, sg.Reason, "[evening]")
}

func TestLatest_AndReset(t *testing.T) {
	svc := NewService(nil)

	_, ok := svc.Latest("alice")
	assert.False(t, ok)

	want := svc.Suggest(reading(100, "", models.Metadata{}))
	got, ok := svc.Latest("alice")
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)

	svc.Reset("alice")
	_, ok = svc.Latest("alice")
	assert.False(t, ok)
}
