//go:build !onnx

package engine

import "errors"

// ErrNativeUnavailable indicates the ONNX Runtime engines are not compiled in.
var ErrNativeUnavailable = errors.New("engine: onnx backend not available (build without -tags onnx)")

// NativeAvailable reports that no native engine is compiled in.
func NativeAvailable() bool { return false }

// NewNativeVoice returns an error when built without the onnx tag.
func NewNativeVoice(_ Options) (VoiceEngine, error) {
	return nil, ErrNativeUnavailable
}

// NewNativeTagger returns an error when built without the onnx tag.
func NewNativeTagger(_ Options) (Tagger, error) {
	return nil, ErrNativeUnavailable
}
