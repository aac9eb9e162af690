//go:build onnx

package engine

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// sileroContextSize is the number of trailing samples of the previous
	// window that Silero VAD v5 expects in front of each 16 kHz window.
	sileroContextSize = 64

	// sileroStateSize is the hidden state dimension per layer.
	// Silero VAD v5 uses a combined state tensor of shape [2, 1, 128].
	sileroStateSize = 128
)

// SileroEngine runs Silero VAD v5 inference via ONNX Runtime.
// Inference is serialized; recurrent state persists across calls until Reset.
type SileroEngine struct {
	mu      sync.Mutex
	session *ort.AdvancedSession

	inputTensor *ort.Tensor[float32] // [1, 64+512]
	stateTensor *ort.Tensor[float32] // [2, 1, 128]
	srTensor    *ort.Tensor[int64]   // [1]

	outputTensor *ort.Tensor[float32] // [1, 1]
	stateNTensor *ort.Tensor[float32] // [2, 1, 128]
}

// NewSileroEngine initializes ONNX Runtime, loads the model at
// opts.VADModelPath, and allocates input/output tensors.
func NewSileroEngine(opts Options) (*SileroEngine, error) {
	if opts.VADModelPath == "" {
		return nil, fmt.Errorf("silero: model path is empty")
	}
	if err := initRuntime(opts.ORTLibPath, opts.DevMode); err != nil {
		return nil, fmt.Errorf("silero: %w", err)
	}

	e := &SileroEngine{}
	var err error
	if e.inputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, sileroContextSize+VoiceWindowSamples)); err != nil {
		return nil, fmt.Errorf("silero: create input tensor: %w", err)
	}
	if e.stateTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize)); err != nil {
		e.Close()
		return nil, fmt.Errorf("silero: create state tensor: %w", err)
	}
	if e.srTensor, err = ort.NewTensor(ort.NewShape(1), []int64{VoiceSampleRate}); err != nil {
		e.Close()
		return nil, fmt.Errorf("silero: create sr tensor: %w", err)
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		e.Close()
		return nil, fmt.Errorf("silero: create output tensor: %w", err)
	}
	if e.stateNTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize)); err != nil {
		e.Close()
		return nil, fmt.Errorf("silero: create stateN tensor: %w", err)
	}

	// onnxruntime_go does not guarantee zeroed memory.
	clear(e.inputTensor.GetData())
	clear(e.stateTensor.GetData())
	clear(e.stateNTensor.GetData())

	e.session, err = ort.NewAdvancedSession(
		opts.VADModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{e.inputTensor, e.stateTensor, e.srTensor},
		[]ort.Value{e.outputTensor, e.stateNTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("silero: create session from %s: %w", opts.VADModelPath, err)
	}
	return e, nil
}

// Probabilities scores every 512-sample window of samples. The trailing
// partial window is zero-padded.
func (e *SileroEngine) Probabilities(ctx context.Context, samples []float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("silero: engine closed")
	}

	windows := (len(samples) + VoiceWindowSamples - 1) / VoiceWindowSamples
	probs := make([]float32, 0, windows)
	window := make([]float32, VoiceWindowSamples)
	for start := 0; start < len(samples); start += VoiceWindowSamples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := copy(window, samples[start:])
		clear(window[n:])
		prob, err := e.infer(window)
		if err != nil {
			return nil, err
		}
		probs = append(probs, prob)
	}
	return probs, nil
}

func (e *SileroEngine) WindowSamples() int { return VoiceWindowSamples }

func (e *SileroEngine) SampleRate() int { return VoiceSampleRate }

// Reset clears the recurrent state and the carried context samples.
func (e *SileroEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	clear(e.stateTensor.GetData())
	clear(e.inputTensor.GetData())
	return nil
}

// Close releases ONNX Runtime resources. Safe to call multiple times.
func (e *SileroEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	for _, v := range []interface{ Destroy() error }{e.inputTensor, e.stateTensor, e.srTensor, e.outputTensor, e.stateNTensor} {
		destroyValue(v)
	}
	e.inputTensor, e.stateTensor, e.srTensor, e.outputTensor, e.stateNTensor = nil, nil, nil, nil, nil
	return nil
}

// infer runs one Silero inference. The first sileroContextSize input slots
// already hold the tail of the previous window.
func (e *SileroEngine) infer(window []float32) (float32, error) {
	input := e.inputTensor.GetData()
	copy(input[sileroContextSize:], window)

	if err := e.session.Run(); err != nil {
		return 0, fmt.Errorf("silero: inference: %w", err)
	}
	prob := e.outputTensor.GetData()[0]

	copy(e.stateTensor.GetData(), e.stateNTensor.GetData())
	copy(input[:sileroContextSize], input[len(input)-sileroContextSize:])
	return prob, nil
}

// destroyValue tolerates typed-nil tensors left by a failed constructor.
func destroyValue(v interface{ Destroy() error }) {
	switch t := v.(type) {
	case *ort.Tensor[float32]:
		if t != nil {
			t.Destroy()
		}
	case *ort.Tensor[int64]:
		if t != nil {
			t.Destroy()
		}
	}
}
