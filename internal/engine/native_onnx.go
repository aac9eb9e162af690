//go:build onnx

package engine

// NativeAvailable reports that the ONNX Runtime engines are compiled in.
func NativeAvailable() bool { return true }

// NewNativeVoice creates a SileroEngine.
func NewNativeVoice(opts Options) (VoiceEngine, error) {
	eng, err := NewSileroEngine(opts)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// NewNativeTagger creates a PANNsTagger.
func NewNativeTagger(opts Options) (Tagger, error) {
	t, err := NewPANNsTagger(opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}
