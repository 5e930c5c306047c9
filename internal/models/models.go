// Package models contains the data structures shared across the service.
package models

import (
	"time"

	"vibesense-service/internal/zone"
)

// DefaultUser is the user key used when a request carries no user id.
const DefaultUser = "default"

// Metadata is opaque pass-through payload attached to a sample. The core
// stores and forwards it but performs no logic over it.
type Metadata struct {
	HRVMs       *float64 `json:"hrv_ms,omitempty"`
	WorkoutType string   `json:"workout_type,omitempty"`
	RestingHR   *float64 `json:"resting_hr,omitempty"`
	TimeOfDay   string   `json:"time_of_day,omitempty"`
}

// IngestRequest is the body of POST /ingest.
type IngestRequest struct {
	UserID    string    `json:"user_id,omitempty"`
	BPM       float64   `json:"bpm"`
	Mood      string    `json:"mood,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Metadata
}

// IngestBatch is the body of POST /ingest/batch.
type IngestBatch struct {
	Samples []IngestRequest `json:"samples"`
}

// RawSample is one heart-rate observation handed to a stabilizer.
type RawSample struct {
	UserID     string
	BPM        float64
	Mood       string
	ObservedAt time.Time
	Metadata   Metadata
}

// StableReading is the authoritative physiological state for a user.
// Zone, mood and hint are resolved at construction and never mutated.
type StableReading struct {
	UserID              string    `json:"user_id"`
	BPM                 float64   `json:"bpm"`
	Zone                zone.Zone `json:"zone"`
	Mood                string    `json:"mood"`
	Timestamp           time.Time `json:"timestamp"`
	PlaylistHint        string    `json:"playlist_hint"`
	CooldownRecommended bool      `json:"cooldown_recommended"`
	Metadata
}

// NewStableReading builds a reading from a (possibly smoothed) BPM value,
// resolving the zone and defaulting the mood when no override is present.
func NewStableReading(userID string, bpm float64, mood string, observedAt time.Time, meta Metadata) StableReading {
	z := zone.Classify(bpm)
	if mood == "" {
		mood = z.DefaultMood()
	}
	return StableReading{
		UserID:              userID,
		BPM:                 bpm,
		Zone:                z,
		Mood:                mood,
		Timestamp:           observedAt,
		PlaylistHint:        z.PlaylistHint(),
		CooldownRecommended: z.CooldownRecommended(),
		Metadata:            meta,
	}
}

// HealthStatus is the GET /health response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Nats      string    `json:"nats"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse is the GET /stats response.
type StatsResponse struct {
	TotalSamples   int64 `json:"total_samples"`
	TotalPublished int64 `json:"total_published"`
	ActiveUsers    int   `json:"active_users"`
}

// TimeOfDayBucket maps a local timestamp to a coarse day segment.
func TimeOfDayBucket(t time.Time) string {
	hour := t.Local().Hour()
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}
