package speech

import (
	"math"
	"testing"
)

// pattern builds per-window probabilities from (count, prob) pairs.
func pattern(parts ...any) []float32 {
	var out []float32
	for i := 0; i < len(parts); i += 2 {
		n := parts[i].(int)
		p := float32(parts[i+1].(float64))
		for j := 0; j < n; j++ {
			out = append(out, p)
		}
	}
	return out
}

func assertSegments(t *testing.T, got, want []Segment) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("segments = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segments = %v, want %v", got, want)
		}
	}
}

func TestTimestampsSingleSegment(t *testing.T) {
	probs := pattern(10, 0.0, 20, 0.9, 10, 0.0)
	got := Timestamps(probs, len(probs)*512, DefaultParams())
	assertSegments(t, got, []Segment{{4640, 15840}})
}

func TestTimestampsShortSilenceMerges(t *testing.T) {
	// Three silent windows (1536 samples) stay under the 1600 sample minimum.
	probs := pattern(10, 0.0, 10, 0.9, 3, 0.0, 10, 0.9, 10, 0.0)
	got := Timestamps(probs, len(probs)*512, DefaultParams())
	if len(got) != 1 {
		t.Fatalf("segments = %v, want one merged segment", got)
	}
}

func TestTimestampsTwoSegmentsPadded(t *testing.T) {
	probs := pattern(10, 0.0, 10, 0.9, 6, 0.0, 10, 0.9, 10, 0.0)
	total := len(probs) * 512
	got := Timestamps(probs, total, DefaultParams())
	assertSegments(t, got, []Segment{{4640, 10720}, {12832, 18912}})
}

func TestTimestampsNarrowGapSplitInHalf(t *testing.T) {
	probs := pattern(10, 0.0, 10, 0.9, 6, 0.0, 10, 0.9, 10, 0.0)
	p := DefaultParams()
	p.SpeechPadMs = 100
	got := Timestamps(probs, len(probs)*512, p)
	assertSegments(t, got, []Segment{{3520, 11776}, {11776, 20032}})
}

func TestTimestampsDropsShortSpeech(t *testing.T) {
	probs := pattern(10, 0.0, 6, 0.9, 10, 0.0)
	if got := Timestamps(probs, len(probs)*512, DefaultParams()); len(got) != 0 {
		t.Fatalf("segments = %v, want none", got)
	}
}

func TestTimestampsSpeechUntilEnd(t *testing.T) {
	probs := pattern(10, 0.0, 30, 0.9)
	got := Timestamps(probs, 20000, DefaultParams())
	assertSegments(t, got, []Segment{{4640, 20000}})
}

func TestTimestampsHysteresis(t *testing.T) {
	// 0.4 is below threshold 0.5 but above the 0.35 offset threshold, so
	// speech continues through it.
	probs := pattern(10, 0.0, 10, 0.9, 10, 0.4, 10, 0.0)
	got := Timestamps(probs, len(probs)*512, DefaultParams())
	assertSegments(t, got, []Segment{{4640, 15840}})
}

func TestTimestampsMaxSpeechHardCut(t *testing.T) {
	probs := pattern(100, 0.9)
	p := DefaultParams()
	p.MaxSpeechDurationS = 1
	got := Timestamps(probs, len(probs)*512, p)
	assertSegments(t, got, []Segment{{0, 15104}, {15104, 30464}, {30464, 45824}, {45824, 51200}})
}

func TestTimestampsMaxSpeechSplitsAtSilence(t *testing.T) {
	probs := pattern(10, 0.9, 5, 0.0, 46, 0.9)
	p := DefaultParams()
	p.MaxSpeechDurationS = 1
	p.MinSilenceDurationMs = 500
	p.SpeechPadMs = 0
	got := Timestamps(probs, len(probs)*512, p)
	assertSegments(t, got, []Segment{{0, 5120}, {7680, 23552}, {24064, 31232}})
}

func TestTimestampsEmpty(t *testing.T) {
	if got := Timestamps(nil, 0, DefaultParams()); len(got) != 0 {
		t.Fatalf("segments = %v, want none", got)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatal(err)
	}
	bad := []Params{
		{Threshold: 1.5},
		{Threshold: 0.5, MinSpeechDurationMs: -1},
		{Threshold: 0.5, MaxSpeechDurationS: -2},
		{Threshold: math.NaN()},
		{Threshold: 0.5, MaxSpeechDurationS: math.Inf(1)},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", p)
		}
	}
}
