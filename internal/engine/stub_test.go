package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStubVoiceEngineAlternatesSpeechSilence(t *testing.T) {
	eng := NewStubVoiceEngine()

	samples := make([]float32, VoiceWindowSamples*StubToggleInterval*3)
	probs, err := eng.Probabilities(context.Background(), samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(probs) != StubToggleInterval*3 {
		t.Fatalf("len(probs) = %d, want %d", len(probs), StubToggleInterval*3)
	}
	for i, p := range probs {
		want := StubSilenceProb
		if i >= StubToggleInterval && i < 2*StubToggleInterval {
			want = StubSpeechProb
		}
		if p != want {
			t.Fatalf("probs[%d] = %v, want %v", i, p, want)
		}
	}
}

func TestStubVoiceEnginePadsPartialWindow(t *testing.T) {
	eng := NewStubVoiceEngine()
	probs, err := eng.Probabilities(context.Background(), make([]float32, VoiceWindowSamples+1))
	if err != nil {
		t.Fatal(err)
	}
	if len(probs) != 2 {
		t.Fatalf("len(probs) = %d, want 2", len(probs))
	}
}

func TestStubVoiceEngineReset(t *testing.T) {
	eng := NewStubVoiceEngine()

	// Advance past the first toggle.
	if _, err := eng.Probabilities(context.Background(), make([]float32, VoiceWindowSamples*(StubToggleInterval+1))); err != nil {
		t.Fatal(err)
	}
	probs, _ := eng.Probabilities(context.Background(), make([]float32, VoiceWindowSamples))
	if probs[0] != StubSpeechProb {
		t.Fatal("expected speech before reset")
	}

	if err := eng.Reset(); err != nil {
		t.Fatal(err)
	}
	probs, _ = eng.Probabilities(context.Background(), make([]float32, VoiceWindowSamples))
	if probs[0] != StubSilenceProb {
		t.Fatal("expected silence after reset")
	}
}

func TestStubVoiceEngineEmpty(t *testing.T) {
	if _, err := NewStubVoiceEngine().Probabilities(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

func TestStubVoiceEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStubVoiceEngine().Probabilities(ctx, make([]float32, VoiceWindowSamples)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestStubTaggerPattern(t *testing.T) {
	tagger := NewStubTagger()
	// 1 s at 32 kHz -> 101 frames.
	fw, err := tagger.Framewise(context.Background(), make([]float32, TaggerSampleRate))
	if err != nil {
		t.Fatal(err)
	}
	if fw.Frames != 101 {
		t.Fatalf("Frames = %d, want 101", fw.Frames)
	}
	if fw.Classes != len(tagger.Labels()) {
		t.Fatalf("Classes = %d, want %d", fw.Classes, len(tagger.Labels()))
	}
	if fw.At(0, 0) != StubTaggerHigh || fw.At(0, 1) != StubTaggerLow {
		t.Errorf("frame 0: speech=%v music=%v", fw.At(0, 0), fw.At(0, 1))
	}
	if fw.At(100, 0) != StubTaggerLow || fw.At(100, 1) != StubTaggerHigh {
		t.Errorf("frame 100: speech=%v music=%v", fw.At(100, 0), fw.At(100, 1))
	}
	for i := 0; i < fw.Frames; i++ {
		if fw.At(i, 2) != StubTaggerLow {
			t.Fatalf("rain frame %d = %v, want low", i, fw.At(i, 2))
		}
	}
	if fw.At(StubDoorPeriod, 3) != StubTaggerHigh || fw.At(StubDoorFrames, 3) != StubTaggerLow {
		t.Error("door burst pattern mismatch")
	}
}

func TestFramewiseColumn(t *testing.T) {
	fw := Framewise{Frames: 3, Classes: 2, Data: []float32{0.1, 0.9, 0.2, 0.8, 0.3, 0.7}}
	col := fw.Column(1)
	want := []float32{0.9, 0.8, 0.7}
	for i := range want {
		if col[i] != want[i] {
			t.Fatalf("Column(1)[%d] = %v, want %v", i, col[i], want[i])
		}
	}
	if fw.At(2, 0) != 0.3 {
		t.Fatalf("At(2,0) = %v, want 0.3", fw.At(2, 0))
	}
}
