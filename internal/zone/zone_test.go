package zone

import "testing"

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		bpm  float64
		want Zone
	}{
		{0, Rest},
		{45, Rest},
		{59.9, Rest},
		{60, Light},
		{89.9, Light},
		{90, Moderate},
		{119.9, Moderate},
		{120, Hard},
		{149.9, Hard},
		{150, Peak},
		{179.9, Peak},
		{180, Redline},
		{199.9, Redline},
		{200, Supra},
		{240, Supra},
	}

	for _, tc := range cases {
		if got := Classify(tc.bpm); got != tc.want {
			t.Errorf("Classify(%.1f) = %s, want %s", tc.bpm, got, tc.want)
		}
	}
}

func TestClassify_NegativeFallsToRest(t *testing.T) {
	if got := Classify(-10); got != Rest {
		t.Errorf("Classify(-10) = %s, want %s", got, Rest)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	prev := Classify(0).Index()
	for bpm := 1.0; bpm <= 250; bpm++ {
		idx := Classify(bpm).Index()
		if idx < prev {
			t.Fatalf("band index decreased at %.0f bpm: %d -> %d", bpm, prev, idx)
		}
		prev = idx
	}
}

func TestZone_Defaults(t *testing.T) {
	if got := Moderate.DefaultMood(); got != "upbeat" {
		t.Errorf("Moderate mood = %q, want upbeat", got)
	}
	if got := Rest.PlaylistHint(); got != "calm acoustic or lo-fi" {
		t.Errorf("Rest hint = %q", got)
	}

	// Unknown zones resolve to the lowest band's defaults.
	unknown := Zone("warp")
	if got := unknown.DefaultMood(); got != "chill" {
		t.Errorf("unknown zone mood = %q, want chill", got)
	}
	if got := unknown.Index(); got != 0 {
		t.Errorf("unknown zone index = %d, want 0", got)
	}
}

func TestZone_CooldownRecommended(t *testing.T) {
	for _, z := range []Zone{Rest, Light, Moderate} {
		if z.CooldownRecommended() {
			t.Errorf("%s should not recommend cooldown", z)
		}
	}
	for _, z := range []Zone{Hard, Peak, Redline, Supra} {
		if !z.CooldownRecommended() {
			t.Errorf("%s should recommend cooldown", z)
		}
	}
}
