// Package zone maps instantaneous heart rate onto discrete exertion bands.
package zone

// Zone is an ordered exertion label derived from heart rate.
type Zone string

const (
	Rest     Zone = "rest"
	Light    Zone = "light"
	Moderate Zone = "moderate"
	Hard     Zone = "hard"
	Peak     Zone = "peak"
	Redline  Zone = "redline"
	Supra    Zone = "supra"
)

// band is a half-open interval ending just below upper.
type band struct {
	upper float64
	zone  Zone
}

// bands partition the non-negative BPM domain, calmest first.
// The last entry catches everything at or above 200 BPM.
var bands = []band{
	{60, Rest},
	{90, Light},
	{120, Moderate},
	{150, Hard},
	{180, Peak},
	{200, Redline},
}

// ordered lists zones from calmest to most intense for index comparisons.
var ordered = []Zone{Rest, Light, Moderate, Hard, Peak, Redline, Supra}

type profile struct {
	mood string
	hint string
}

// profiles maps each zone to its default mood label and playlist hint.
var profiles = map[Zone]profile{
	Rest:     {mood: "chill", hint: "calm acoustic or lo-fi"},
	Light:    {mood: "focus", hint: "steady focus playlists"},
	Moderate: {mood: "upbeat", hint: "upbeat pop/indie"},
	Hard:     {mood: "hype", hint: "high-energy workout"},
	Peak:     {mood: "intense", hint: "max intensity anthems"},
	Redline:  {mood: "max-energy", hint: "hard rock edm sprint"},
	Supra:    {mood: "steady-intense", hint: "intense endurance mix"},
}

// Classify maps a BPM value to its zone. Total over all inputs: anything
// below the first boundary (including negative values) is Rest, anything
// at or above the last boundary is Supra.
func Classify(bpm float64) Zone {
	for _, b := range bands {
		if bpm < b.upper {
			return b.zone
		}
	}
	return Supra
}

// Index returns the position of the zone in the calm-to-intense ordering.
// Unknown zones resolve to the lowest band.
func (z Zone) Index() int {
	for i, known := range ordered {
		if z == known {
			return i
		}
	}
	return 0
}

// DefaultMood returns the mood label used when the user gave no override.
func (z Zone) DefaultMood() string {
	if p, ok := profiles[z]; ok {
		return p.mood
	}
	return profiles[Rest].mood
}

// PlaylistHint returns a short descriptive hint for music selection.
func (z Zone) PlaylistHint() string {
	if p, ok := profiles[z]; ok {
		return p.hint
	}
	return profiles[Rest].hint
}

// CooldownRecommended reports whether the zone is intense enough that the
// client should steer toward a cooldown soon.
func (z Zone) CooldownRecommended() bool {
	return z.Index() >= Hard.Index()
}
