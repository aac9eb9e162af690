package engine

import (
	"context"
	"sync"
)

// StubToggleInterval is the number of windows after which the stub voice
// engine toggles between speech and silence. At 32 ms per window, 50 windows
// is 1.6 seconds.
const StubToggleInterval = 50

const (
	// StubSpeechProb is returned by the stub voice engine for speech windows.
	StubSpeechProb float32 = 0.92
	// StubSilenceProb is returned by the stub voice engine for silence windows.
	StubSilenceProb float32 = 0.02
)

// StubVoiceEngine returns deterministic probabilities by alternating between
// silence and speech every StubToggleInterval windows, starting in silence.
// It does not look at audio content.
type StubVoiceEngine struct {
	mu      sync.Mutex
	counter int
	speech  bool
}

// NewStubVoiceEngine creates a StubVoiceEngine starting in silence.
func NewStubVoiceEngine() *StubVoiceEngine {
	return &StubVoiceEngine{}
}

// Probabilities emits one value per window of samples.
func (e *StubVoiceEngine) Probabilities(ctx context.Context, samples []float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	windows := (len(samples) + VoiceWindowSamples - 1) / VoiceWindowSamples
	probs := make([]float32, windows)
	for i := range probs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.counter == StubToggleInterval {
			e.counter = 0
			e.speech = !e.speech
		}
		e.counter++
		if e.speech {
			probs[i] = StubSpeechProb
		} else {
			probs[i] = StubSilenceProb
		}
	}
	return probs, nil
}

func (e *StubVoiceEngine) WindowSamples() int { return VoiceWindowSamples }

func (e *StubVoiceEngine) SampleRate() int { return VoiceSampleRate }

// Reset returns the engine to its initial state (silence, counter zero).
func (e *StubVoiceEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter = 0
	e.speech = false
	return nil
}

// Close is a no-op for the stub engine.
func (e *StubVoiceEngine) Close() error {
	return nil
}

// StubLabels are the classes emitted by StubTagger.
var StubLabels = []string{"Speech", "Music", "Rain", "Door"}

const (
	// StubTaggerHigh is the probability StubTagger assigns to active classes.
	StubTaggerHigh float32 = 0.8
	// StubTaggerLow is the probability StubTagger assigns to inactive classes.
	StubTaggerLow float32 = 0.05
	// StubDoorPeriod is the frame period of the short "Door" bursts.
	StubDoorPeriod = 50
	// StubDoorFrames is the length of each "Door" burst in frames.
	StubDoorFrames = 3
)

// StubTagger returns a deterministic framewise matrix that depends only on
// the input length: "Speech" is active over the first half of the frames,
// "Music" over the second half, "Rain" never, and "Door" for StubDoorFrames
// frames every StubDoorPeriod frames.
type StubTagger struct{}

// NewStubTagger creates a StubTagger.
func NewStubTagger() *StubTagger {
	return &StubTagger{}
}

// Framewise returns len(samples)/TaggerHopSamples+1 frames, matching the
// frame count of a centered STFT.
func (t *StubTagger) Framewise(ctx context.Context, samples []float32) (Framewise, error) {
	if len(samples) == 0 {
		return Framewise{}, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return Framewise{}, err
	}
	frames := len(samples)/TaggerHopSamples + 1
	classes := len(StubLabels)
	fw := Framewise{Frames: frames, Classes: classes, Data: make([]float32, frames*classes)}
	half := frames / 2
	for i := 0; i < frames; i++ {
		row := fw.Data[i*classes : (i+1)*classes]
		row[0], row[1], row[2], row[3] = StubTaggerLow, StubTaggerLow, StubTaggerLow, StubTaggerLow
		if i < half {
			row[0] = StubTaggerHigh
		} else {
			row[1] = StubTaggerHigh
		}
		if i%StubDoorPeriod < StubDoorFrames {
			row[3] = StubTaggerHigh
		}
	}
	return fw, nil
}

func (t *StubTagger) Labels() []string { return StubLabels }

func (t *StubTagger) SampleRate() int { return TaggerSampleRate }

func (t *StubTagger) FrameDuration() float64 { return TaggerFrameDuration }

// Close is a no-op for the stub tagger.
func (t *StubTagger) Close() error { return nil }
