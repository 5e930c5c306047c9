// Package suggest derives deterministic mood suggestions from stable readings.
package suggest

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vibesense-service/internal/models"
	"vibesense-service/internal/zone"
)

// Suggestion is the music-steering payload handed to the client.
type Suggestion struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	Mood            string               `json:"mood"`
	Intensity       float64              `json:"intensity"`
	SuggestedAction string               `json:"suggested_action"`
	SearchQuery     string               `json:"search_query"`
	Reason          string               `json:"reason"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Heart           models.StableReading `json:"heart"`
}

type defaults struct {
	mood      string
	intensity float64
	action    string
	query     string
}

// zoneDefaults carries the per-zone baseline suggestion.
var zoneDefaults = map[zone.Zone]defaults{
	zone.Rest:     {mood: "relaxed", intensity: 0.15, action: "play_playlist", query: "acoustic chill instrumental focus"},
	zone.Light:    {mood: "focused", intensity: 0.3, action: "play_playlist", query: "lofi steady focus beats"},
	zone.Moderate: {mood: "upbeat", intensity: 0.55, action: "play_playlist", query: "upbeat pop indie groove"},
	zone.Hard:     {mood: "hype", intensity: 0.75, action: "play_track", query: "high energy workout bangers"},
	zone.Peak:     {mood: "intense", intensity: 0.9, action: "play_track", query: "max intensity edm anthems"},
	zone.Redline:  {mood: "max-energy", intensity: 0.95, action: "play_track", query: "hard rock edm sprint"},
	zone.Supra:    {mood: "steady-intense", intensity: 0.85, action: "play_playlist", query: "intense endurance mix"},
}

// Service builds suggestions and remembers the latest one per user.
type Service struct {
	logger *zap.Logger

	mu     sync.RWMutex
	latest map[string]Suggestion
}

// NewService returns an empty suggestion service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger: logger,
		latest: map[string]Suggestion{},
	}
}

func pickDefaults(z zone.Zone) defaults {
	if d, ok := zoneDefaults[z]; ok {
		return d
	}
	return zoneDefaults[zone.Rest]
}

// buildQuery prepends a hint to the base query when one is available.
func buildQuery(base, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return base
	}
	return hint + " " + base
}

// Suggest derives a suggestion for the given reading. The rules layer the
// zone defaults with HRV and workout context: a stressed resting user is
// steered toward calming music, a recovered one toward focus, and an active
// workout keeps the zone's energy with the activity folded into the query.
func (s *Service) Suggest(state models.StableReading) Suggestion {
	userID := state.UserID
	if userID == "" {
		userID = models.DefaultUser
	}
	d := pickDefaults(state.Zone)

	hrv := 0.0
	if state.HRVMs != nil {
		hrv = *state.HRVMs
	}
	resting := 60.0
	if state.RestingHR != nil {
		resting = *state.RestingHR
	}
	workout := strings.ToLower(state.WorkoutType)
	if workout == "" {
		workout = "unknown"
	}

	isWorkout := workout != "unknown" && workout != "sedentary" && workout != "rest" && workout != "none"
	highBPMForRest := state.BPM > math.Max(90, resting+15)
	lowHRV := hrv > 0 && hrv < 45
	recovered := hrv >= 65 || ((state.Zone == zone.Rest || state.Zone == zone.Light) && state.BPM <= resting+5)
	stressed := !isWorkout && (lowHRV || highBPMForRest) &&
		state.Zone != zone.Hard && state.Zone != zone.Peak && state.Zone != zone.Redline

	var (
		mood      string
		action    string
		intensity float64
		query     string
		reason    string
	)

	switch {
	case stressed:
		mood = "calm"
		action = "play_playlist"
		intensity = 0.2
		query = "calming ambient instrumental"
		reason = fmt.Sprintf("%.0f bpm w/ low HRV (%.0f ms) and no workout → calming", state.BPM, hrv)
	case recovered:
		mood = "focus"
		action = "play_playlist"
		intensity = 0.35
		query = "deep focus beats"
		reason = fmt.Sprintf("Recovered (HRV %.0f ms, %s zone) → focus music", hrv, state.Zone)
	case isWorkout:
		mood = stateMood(state, d)
		action = d.action
		intensity = d.intensity
		query = buildQuery(d.query, workout)
		reason = fmt.Sprintf("Workout: %s in %s zone at %.0f bpm → keep energy", workout, state.Zone, state.BPM)
	default:
		mood = stateMood(state, d)
		action = d.action
		intensity = d.intensity
		query = buildQuery(d.query, state.PlaylistHint)
		reason = fmt.Sprintf("%.0f bpm in %s zone → %s vibe", state.BPM, state.Zone, mood)
	}

	if state.TimeOfDay != "" {
		reason = fmt.Sprintf("%s [%s]", reason, state.TimeOfDay)
	}

	suggestion := Suggestion{
		ID:              uuid.NewString(),
		UserID:          userID,
		Mood:            mood,
		Intensity:       intensity,
		SuggestedAction: action,
		SearchQuery:     query,
		Reason:          reason,
		GeneratedAt:     time.Now(),
		Heart:           state,
	}

	s.mu.Lock()
	s.latest[userID] = suggestion
	s.mu.Unlock()

	s.logger.Debug("built suggestion",
		zap.String("user_id", userID),
		zap.String("mood", mood),
		zap.String("action", action))
	return suggestion
}

// stateMood prefers the user's mood override over the zone default.
func stateMood(state models.StableReading, d defaults) string {
	if state.Mood != "" && state.Mood != state.Zone.DefaultMood() {
		return state.Mood
	}
	return d.mood
}

// Latest returns the most recent suggestion for a user, if any.
func (s *Service) Latest(userID string) (Suggestion, bool) {
	if userID == "" {
		userID = models.DefaultUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.latest[userID]
	return sg, ok
}

// Reset forgets the cached suggestion for a user.
func (s *Service) Reset(userID string) {
	if userID == "" {
		userID = models.DefaultUser
	}
	s.mu.Lock()
	delete(s.latest, userID)
	s.mu.Unlock()
}
