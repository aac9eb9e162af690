package engine

import (
	"context"
	"errors"
)

const (
	// VoiceSampleRate is the input rate required by Silero VAD.
	VoiceSampleRate = 16000
	// VoiceWindowSamples is the number of samples per Silero inference at 16 kHz.
	VoiceWindowSamples = 512

	// TaggerSampleRate is the input rate required by the PANNs tagger.
	TaggerSampleRate = 32000
	// TaggerHopSamples is the STFT hop of the tagger: 320 samples = 10 ms.
	TaggerHopSamples = 320
	// TaggerFrameDuration is the duration of one framewise output row in seconds.
	TaggerFrameDuration = 0.01
	// AudioSetClasses is the number of classes emitted by AudioSet taggers.
	AudioSetClasses = 527
)

// ErrEmptyInput is returned when an engine receives no samples.
var ErrEmptyInput = errors.New("engine: empty input")

// VoiceEngine scores speech probability per fixed-size window.
type VoiceEngine interface {
	// Probabilities returns one speech probability per WindowSamples-sized
	// window of samples. A trailing partial window is zero-padded.
	Probabilities(ctx context.Context, samples []float32) ([]float32, error)
	// WindowSamples returns the number of samples scored per probability.
	WindowSamples() int
	// SampleRate returns the input rate the engine expects.
	SampleRate() int
	// Reset clears recurrent state between recordings.
	Reset() error
	// Close releases resources.
	Close() error
}

// Tagger produces a framewise class probability matrix for a recording.
type Tagger interface {
	Framewise(ctx context.Context, samples []float32) (Framewise, error)
	// Labels returns the class names, indexed like Framewise columns.
	Labels() []string
	SampleRate() int
	// FrameDuration returns the duration of one output frame in seconds.
	FrameDuration() float64
	Close() error
}

// Framewise is a row-major [Frames][Classes] probability matrix.
type Framewise struct {
	Frames  int
	Classes int
	Data    []float32
}

// At returns the probability of class at frame.
func (f Framewise) At(frame, class int) float32 {
	return f.Data[frame*f.Classes+class]
}

// Column copies the probabilities of one class across all frames.
func (f Framewise) Column(class int) []float32 {
	col := make([]float32, f.Frames)
	for i := range col {
		col[i] = f.Data[i*f.Classes+class]
	}
	return col
}

// Options locate the native runtime and model files.
type Options struct {
	// ORTLibPath overrides ONNX Runtime shared library discovery.
	ORTLibPath string
	// DevMode enables CWD-relative library lookup.
	DevMode bool

	VADModelPath string
	SEDModelPath string
	// LabelsPath is the AudioSet class_labels_indices.csv.
	LabelsPath string
}
