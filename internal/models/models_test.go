package models

import (
	"testing"
	"time"

	"vibesense-service/internal/zone"
)

func TestNewStableReading_ResolvesMood(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	withDefault := NewStableReading("alice", 100, "", ts, Metadata{})
	if withDefault.Mood != zone.Moderate.DefaultMood() {
		t.Errorf("mood = %q, want zone default %q", withDefault.Mood, zone.Moderate.DefaultMood())
	}
	if withDefault.Zone != zone.Moderate {
		t.Errorf("zone = %s, want moderate", withDefault.Zone)
	}
	if withDefault.PlaylistHint == "" {
		t.Error("playlist hint should be resolved")
	}

	withOverride := NewStableReading("alice", 100, "gritty", ts, Metadata{})
	if withOverride.Mood != "gritty" {
		t.Errorf("mood = %q, want the override", withOverride.Mood)
	}
}

func TestNewStableReading_Cooldown(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	if NewStableReading("a", 80, "", ts, Metadata{}).CooldownRecommended {
		t.Error("light zone should not recommend cooldown")
	}
	if !NewStableReading("a", 160, "", ts, Metadata{}).CooldownRecommended {
		t.Error("peak zone should recommend cooldown")
	}
}

func TestTimeOfDayBucket(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{21, "evening"},
		{22, "night"},
		{3, "night"},
	}

	for _, tc := range cases {
		ts := time.Date(2024, 6, 1, tc.hour, 30, 0, 0, time.Local)
		if got := TimeOfDayBucket(ts); got != tc.want {
			t.Errorf("TimeOfDayBucket(hour=%d) = %q, want %q", tc.hour, got, tc.want)
		}
	}
}
