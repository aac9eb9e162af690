//go:build onnx

package engine

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// PANNsTagger runs a PANNs Cnn14_DecisionLevelMax export that maps a 32 kHz
// waveform [1, n] to framewise_output [1, frames, classes].
type PANNsTagger struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	labels  []string
}

// NewPANNsTagger loads labels and the model at opts.SEDModelPath.
func NewPANNsTagger(opts Options) (*PANNsTagger, error) {
	if opts.SEDModelPath == "" {
		return nil, fmt.Errorf("panns: model path is empty")
	}
	labels, err := LoadLabels(opts.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("panns: %w", err)
	}
	if err := initRuntime(opts.ORTLibPath, opts.DevMode); err != nil {
		return nil, fmt.Errorf("panns: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(
		opts.SEDModelPath,
		[]string{"waveform"},
		[]string{"framewise_output"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("panns: create session from %s: %w", opts.SEDModelPath, err)
	}
	return &PANNsTagger{session: session, labels: labels}, nil
}

// Framewise runs the tagger over the whole recording in one pass.
func (p *PANNsTagger) Framewise(ctx context.Context, samples []float32) (Framewise, error) {
	if len(samples) == 0 {
		return Framewise{}, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return Framewise{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return Framewise{}, fmt.Errorf("panns: tagger closed")
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return Framewise{}, fmt.Errorf("panns: create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := p.session.Run([]ort.Value{input}, outputs); err != nil {
		return Framewise{}, fmt.Errorf("panns: inference: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Framewise{}, fmt.Errorf("panns: unexpected output type %T", outputs[0])
	}
	shape := out.GetShape()
	if len(shape) != 3 || shape[0] != 1 {
		return Framewise{}, fmt.Errorf("panns: unexpected output shape %v", shape)
	}
	frames, classes := int(shape[1]), int(shape[2])
	if classes != len(p.labels) {
		return Framewise{}, fmt.Errorf("panns: model emits %d classes, labels file has %d", classes, len(p.labels))
	}
	data := make([]float32, frames*classes)
	copy(data, out.GetData())
	return Framewise{Frames: frames, Classes: classes, Data: data}, nil
}

func (p *PANNsTagger) Labels() []string { return p.labels }

func (p *PANNsTagger) SampleRate() int { return TaggerSampleRate }

func (p *PANNsTagger) FrameDuration() float64 { return TaggerFrameDuration }

// Close releases the session. Safe to call multiple times.
func (p *PANNsTagger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	return nil
}
