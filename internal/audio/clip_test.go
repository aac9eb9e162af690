package audio

import (
	"math"
	"testing"
)

func TestResampleSameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
}

func TestResampleLength(t *testing.T) {
	in := make([]float32, 44100)
	out := Resample(in, 44100, 16000)
	if len(out) != 16000 {
		t.Fatalf("len = %d, want 16000", len(out))
	}
	out = Resample(make([]float32, 16000), 16000, 32000)
	if len(out) != 32000 {
		t.Fatalf("upsample len = %d, want 32000", len(out))
	}
}

func TestResampleEndpointsAndClamp(t *testing.T) {
	// 4 samples at 4 Hz -> 2 samples at 2 Hz. Positions are linspace(0, 4, 2)
	// = [0, 4]; position 4 is past the last index and clamps to in[3].
	in := []float32{1, 2, 3, 4}
	out := Resample(in, 4, 2)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0] != 1 || out[1] != 4 {
		t.Fatalf("out = %v, want [1 4]", out)
	}
}

func TestResampleInterpolates(t *testing.T) {
	// 3 samples at 3 Hz -> 5 samples at 5 Hz. Positions: linspace(0, 3, 5)
	// = [0, 0.75, 1.5, 2.25, 3].
	in := []float32{0, 1, 2}
	out := Resample(in, 3, 5)
	want := []float32{0, 0.75, 1.5, 2, 2}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestResampleTooShort(t *testing.T) {
	if out := Resample([]float32{1}, 48000, 16000); out != nil {
		t.Fatalf("expected nil for sub-sample output, got %v", out)
	}
}

func TestDownmix(t *testing.T) {
	out := Downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	mono := []float32{0.1, 0.2}
	if got := Downmix(mono, 1); len(got) != 2 || got[0] != 0.1 {
		t.Fatalf("mono passthrough = %v", got)
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	if s := pcm16ToFloat32(nil); s != nil {
		t.Fatalf("expected nil, got %v", s)
	}
	if s := pcm16ToFloat32([]byte{0x01}); s != nil {
		t.Fatalf("expected nil for single byte, got %v", s)
	}
	s := pcm16ToFloat32([]byte{0x00, 0x80, 0xFF, 0x7F})
	if s[0] != -1 {
		t.Errorf("s[0] = %v, want -1", s[0])
	}
	if s[1] != float32(32767)/32768.0 {
		t.Errorf("s[1] = %v, want %v", s[1], float32(32767)/32768.0)
	}
}

func TestClipDuration(t *testing.T) {
	c := &Clip{Samples: make([]float32, 8000), SampleRate: 16000}
	if d := c.Duration(); d != 0.5 {
		t.Fatalf("Duration = %v, want 0.5", d)
	}
	var nilClip *Clip
	if d := nilClip.Duration(); d != 0 {
		t.Fatalf("nil Duration = %v, want 0", d)
	}
}

func TestIsVideo(t *testing.T) {
	for _, ext := range []string{".mp4", ".MOV", ".webm", ".mkv", ".avi"} {
		if !IsVideo(ext) {
			t.Errorf("IsVideo(%q) = false", ext)
		}
	}
	for _, ext := range []string{".wav", ".mp3", ".flac", ""} {
		if IsVideo(ext) {
			t.Errorf("IsVideo(%q) = true", ext)
		}
	}
}
