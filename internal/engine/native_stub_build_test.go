//go:build !onnx

package engine

import (
	"errors"
	"testing"
)

func TestNativeUnavailableWithoutTag(t *testing.T) {
	if NativeAvailable() {
		t.Fatal("NativeAvailable() = true without onnx tag")
	}
	if _, err := NewNativeVoice(Options{}); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("NewNativeVoice err = %v, want ErrNativeUnavailable", err)
	}
	if _, err := NewNativeTagger(Options{}); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("NewNativeTagger err = %v, want ErrNativeUnavailable", err)
	}
}
