package events

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/nupi-ai/plugin-audio-analysis/internal/engine"
)

func TestRuns(t *testing.T) {
	tests := []struct {
		name  string
		probs []float32
		th    float64
		want  []Run
	}{
		{"empty", nil, 0.5, nil},
		{"none above", []float32{0.1, 0.2}, 0.5, nil},
		{"all above", []float32{0.9, 0.9, 0.9}, 0.5, []Run{{0, 3}}},
		{"middle", []float32{0.1, 0.9, 0.9, 0.1}, 0.5, []Run{{1, 3}}},
		{"edges", []float32{0.9, 0.1, 0.9}, 0.5, []Run{{0, 1}, {2, 3}}},
		{"strict", []float32{0.5, 0.5}, 0.5, nil},
		{"float32 equal", []float32{0.3}, 0.3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Runs(tt.probs, tt.th)
			if len(got) != len(tt.want) {
				t.Fatalf("Runs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Runs = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

// matrix builds a Framewise from per-class columns of equal length.
func matrix(cols ...[]float32) engine.Framewise {
	frames := len(cols[0])
	fw := engine.Framewise{Frames: frames, Classes: len(cols), Data: make([]float32, frames*len(cols))}
	for c, col := range cols {
		for i, p := range col {
			fw.Data[i*len(cols)+c] = p
		}
	}
	return fw
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestExtract(t *testing.T) {
	fw := matrix(
		// Speech: frames 2..11 (10 frames, 0.1 s).
		[]float32{0, 0, .8, .8, .8, .8, .8, .8, .8, .6, .6, .6, 0, 0, 0, 0, 0, 0, 0, 0},
		// Door: frames 0..1 and 16..19, both shorter than 0.05 s.
		[]float32{.9, .9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, .9, .9, .9, .9},
		// Rain: frames 0..19, whole clip.
		[]float32{.4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4, .4},
	)
	labels := []string{"Speech", "Door", "Rain"}

	evs := Extract(fw, labels, 0.01, Params{Threshold: 0.3, MinDuration: 0.05})
	if len(evs) != 2 {
		t.Fatalf("len(events) = %d, want 2: %+v", len(evs), evs)
	}
	if evs[0].Label != "Rain" || evs[1].Label != "Speech" {
		t.Fatalf("order = %s, %s; want Rain, Speech", evs[0].Label, evs[1].Label)
	}
	rain := evs[0]
	if rain.Category != CategoryAmbient || !approx(rain.EndTime, 0.2) || !approx(rain.Confidence, 0.4) {
		t.Errorf("rain = %+v", rain)
	}
	speech := evs[1]
	if !approx(speech.StartTime, 0.02) || !approx(speech.EndTime, 0.12) || !approx(speech.Duration, 0.1) {
		t.Errorf("speech times = %+v", speech)
	}
	if !approx(speech.Confidence, (7*0.8+3*0.6)/10) {
		t.Errorf("speech confidence = %v", speech.Confidence)
	}
	if speech.Category != CategoryOther {
		t.Errorf("speech category = %q, want other", speech.Category)
	}
}

func TestExtractStableOrderOnTies(t *testing.T) {
	fw := matrix(
		[]float32{.9, .9, .9},
		[]float32{.9, .9, .9},
	)
	evs := Extract(fw, []string{"B", "A"}, 0.01, Params{Threshold: 0.5})
	if len(evs) != 2 || evs[0].Label != "B" || evs[1].Label != "A" {
		t.Fatalf("events = %+v, want class order B, A", evs)
	}
}

func TestExtractEmptyIsNotNil(t *testing.T) {
	fw := matrix([]float32{0, 0})
	evs := Extract(fw, []string{"Speech"}, 0.01, Params{Threshold: 0.5})
	if evs == nil || len(evs) != 0 {
		t.Fatalf("events = %#v, want empty non-nil", evs)
	}
}

func TestCategorize(t *testing.T) {
	tests := map[string]string{
		"Music":                   CategoryMusic,
		"Bass drum":               CategoryMusic,
		"Rain on surface":         CategoryAmbient,
		"Wind noise (microphone)": CategoryAmbient,
		"Car alarm":               CategoryEffect,
		"Door":                    CategoryEffect,
		"Speech":                  CategoryOther,
		"Singing bowl":            CategoryMusic,
		"Water tap, faucet":       CategoryAmbient,
		"Engine knocking":         CategoryAmbient,
		"Baby laughter":           CategoryEffect,
		"Silence":                 CategoryOther,
	}
	for label, want := range tests {
		if got := Categorize(label); got != want {
			t.Errorf("Categorize(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestNewReport(t *testing.T) {
	evs := []Event{
		{Label: "Music", Category: CategoryMusic},
		{Label: "Rain", Category: CategoryAmbient},
		{Label: "Rain", Category: CategoryAmbient},
		{Label: "Door", Category: CategoryEffect},
		{Label: "Speech", Category: CategoryOther},
	}
	r := NewReport("clip.mp4", 2.5, 0.01, Params{Threshold: 0.3, MinDuration: 0.1}, evs)
	if r.Status != "success" || r.TotalEvents != 5 {
		t.Fatalf("report = %+v", r)
	}
	want := Summary{AmbientCount: 2, EffectCount: 1, MusicCount: 1, OtherCount: 1}
	if r.Summary != want {
		t.Fatalf("summary = %+v, want %+v", r.Summary, want)
	}

	raw, err := json.Marshal(NewReport("x.wav", 1, 0.01, Params{}, nil))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"status", "filename", "duration", "total_events", "events", "summary", "parameters"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, raw)
		}
	}
	if evs, ok := m["events"].([]any); !ok || len(evs) != 0 {
		t.Errorf("events = %v, want []", m["events"])
	}
}

func TestParamsValidate(t *testing.T) {
	if err := (Params{Threshold: 0.3, MinDuration: 0.1}).Validate(); err != nil {
		t.Fatal(err)
	}
	bad := []Params{
		{Threshold: -0.1},
		{Threshold: 1.1},
		{Threshold: math.NaN()},
		{Threshold: 0.3, MinDuration: -1},
		{Threshold: 0.3, MinDuration: math.Inf(1)},
		{Threshold: 0.3, MinDuration: math.NaN()},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", p)
		}
	}
}
